// Command ewfinfo prints the header values, media values, hash values,
// and acquisition metadata of an EWF/DWF image, in the spirit of
// libewf's ewfinfo utility.
package main

import (
	"flag"
	"fmt"
	"os"

	ewf "github.com/forensicgo/goewf"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s segment1.E01 [segment2.E02 ...]\n", os.Args[0])
	}
	flag.Parse()
	paths := flag.Args()
	if len(paths) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	h, err := ewf.Open(paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ewfinfo: %v\n", err)
		os.Exit(1)
	}
	defer h.Close()

	fmt.Printf("Acquisition information\n")
	for _, key := range h.HeaderKeys() {
		if v, ok := h.HeaderValue(key); ok {
			fmt.Printf("\t%-20s %s\n", key, v)
		}
	}

	fmt.Printf("\nMedia information\n")
	fmt.Printf("\tMedia size:\t\t%d bytes\n", h.MediaSize())
	fmt.Printf("\tBytes per sector:\t%d\n", h.BytesPerSector())
	fmt.Printf("\tSectors per chunk:\t%d\n", h.SectorsPerChunk())
	fmt.Printf("\tNumber of chunks:\t%d\n", h.ChunkCount())

	if keys := h.HashKeys(); len(keys) > 0 {
		fmt.Printf("\nDigest hash information\n")
		for _, key := range keys {
			if v, ok := h.HashValue(key); ok {
				fmt.Printf("\t%s:\t%s\n", key, v)
			}
		}
	}

	if errs := h.ChecksumErrors(); len(errs) > 0 {
		fmt.Printf("\nChecksum errors\n")
		for _, r := range errs {
			fmt.Printf("\tsector %d, %d sectors\n", r.StartSector, r.NumberOfSectors)
		}
	}
}
