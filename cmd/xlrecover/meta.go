package main

import (
	"fmt"
	"os"

	"github.com/dialohq/xlrecover"
)

func runMeta(args []string) {
	if len(args) < 3 {
		fatal("meta requires: <sidecar-file> <bucket> <key>")
	}
	path, bucket, key := args[0], args[1], args[2]

	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err.Error())
	}

	meta, err := xlrecover.ParseSidecar(data, bucket, key)
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("Kind:          %s\n", meta.Kind)
	fmt.Printf("VersionID:     %x\n", meta.VersionID)
	if meta.Kind == xlrecover.VersionDeleteMarker {
		return
	}
	fmt.Printf("DataDir:       %s\n", meta.DataDirString())
	fmt.Printf("EcAlgo:        %s\n", meta.EcAlgo)
	fmt.Printf("DataShards:    %d\n", meta.DataShards)
	fmt.Printf("ParityShards:  %d\n", meta.ParityShards)
	fmt.Printf("BlockSize:     %d\n", meta.BlockSize)
	fmt.Printf("ErasureIndex:  %d\n", meta.ErasureIndex)
	fmt.Printf("Distribution:  %v\n", meta.Distribution)
	fmt.Printf("ChecksumAlgo:  %s\n", meta.ChecksumAlgo)
	fmt.Printf("Size:          %d\n", meta.Size)
	fmt.Printf("ModTime:       %d\n", meta.ModTime)
	fmt.Printf("ETag:          %s\n", meta.ETag)
	fmt.Printf("ContentType:   %s\n", meta.ContentType)
	fmt.Printf("Parts:         %d\n", len(meta.Parts))
	for _, p := range meta.Parts {
		fmt.Printf("  #%-4d size=%-10d actual=%-10d etag=%s\n", p.Number, p.Size, p.ActualSize, p.ETag)
	}
}
