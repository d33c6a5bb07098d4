package ewf

import "testing"

func buildSampleTree() *LogicalFileTree {
	root := &LogicalFileEntry{Name: "root", Type: LogicalEntryTypeDirectory}
	child1 := &LogicalFileEntry{Name: "file1.txt", Type: LogicalEntryTypeFile, Size: 1024}
	child2 := &LogicalFileEntry{Name: "subdir", Type: LogicalEntryTypeDirectory}
	grandchild := &LogicalFileEntry{Name: "file2.txt", Type: LogicalEntryTypeFile, Size: 2048}
	child2.Children = append(child2.Children, grandchild)
	root.Children = append(root.Children, child1, child2)
	return &LogicalFileTree{Root: root}
}

func TestLtreeEncodeDecodeRoundTrip(t *testing.T) {
	tree := buildSampleTree()

	payload, err := EncodeLtree(tree)
	if err != nil {
		t.Fatalf("EncodeLtree: %v", err)
	}

	got, err := DecodeLtree(payload)
	if err != nil {
		t.Fatalf("DecodeLtree: %v", err)
	}
	if got.Root == nil || got.Root.Name != "root" {
		t.Fatalf("Root = %+v, want name=root", got.Root)
	}
	if len(got.Root.Children) != 2 {
		t.Fatalf("len(Root.Children) = %d, want 2", len(got.Root.Children))
	}
	if got.Root.Children[0].Name != "file1.txt" || got.Root.Children[0].Size != 1024 {
		t.Errorf("Children[0] = %+v, want file1.txt size 1024", got.Root.Children[0])
	}
	subdir := got.Root.Children[1]
	if subdir.Name != "subdir" || len(subdir.Children) != 1 {
		t.Fatalf("Children[1] = %+v, want subdir with one child", subdir)
	}
	if subdir.Children[0].Name != "file2.txt" || subdir.Children[0].Size != 2048 {
		t.Errorf("subdir.Children[0] = %+v, want file2.txt size 2048", subdir.Children[0])
	}
}

func TestLtreeWalkVisitsPreOrderWithDepth(t *testing.T) {
	tree := buildSampleTree()

	var visited []string
	var depths []int
	tree.Walk(func(e *LogicalFileEntry, depth int) {
		visited = append(visited, e.Name)
		depths = append(depths, depth)
	})

	want := []string{"root", "file1.txt", "subdir", "file2.txt"}
	if len(visited) != len(want) {
		t.Fatalf("Walk visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
	if depths[0] != 0 || depths[1] != 1 || depths[2] != 1 || depths[3] != 2 {
		t.Errorf("depths = %v, want [0 1 1 2]", depths)
	}
}

func TestDecodeLtreeRejectsMultipleRoots(t *testing.T) {
	payload, err := deflate([]byte("-1\troot1\t1\t0\t0\t0\t0\t0\t0\t\t0\t0\t0\n-1\troot2\t1\t0\t0\t0\t0\t0\t0\t\t0\t0\t0\n"))
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if _, err := DecodeLtree(payload); err == nil {
		t.Error("DecodeLtree accepted a payload with two root entries")
	}
}

func TestDecodeLtreeRejectsInvalidParentIndex(t *testing.T) {
	payload, err := deflate([]byte("5\tchild\t0\t0\t0\t0\t0\t0\t0\t\t0\t0\t0\n"))
	if err != nil {
		t.Fatalf("deflate: %v", err)
	}
	if _, err := DecodeLtree(payload); err == nil {
		t.Error("DecodeLtree accepted an entry referencing a non-existent parent")
	}
}

func TestLtreeWalkOnEmptyTree(t *testing.T) {
	tree := &LogicalFileTree{}
	called := false
	tree.Walk(func(*LogicalFileEntry, int) { called = true })
	if called {
		t.Error("Walk invoked the visitor on a tree with no root")
	}
}
