package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/dialohq/xlrecover"
)

func runTopology(args []string) {
	if len(args) < 1 {
		fatal("topology requires: <format.json> [disk-uuid]")
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err.Error())
	}

	doc, err := xlrecover.ParseTopology(data)
	if err != nil {
		fatal(err.Error())
	}

	fmt.Printf("PoolID:   %s\n", doc.PoolID)
	fmt.Printf("Version:  %s\n", doc.Version)
	fmt.Printf("ThisDisk: %s\n", doc.ThisDisk)
	fmt.Printf("Sets:     %d sets x %d disks\n", len(doc.Sets), setWidth(doc.Sets))
	for si, set := range doc.Sets {
		fmt.Printf("  set %d:\n", si)
		for di, disk := range set {
			fmt.Printf("    disk %d: %s\n", di, disk)
		}
	}

	if len(args) < 2 {
		return
	}
	disk, err := uuid.Parse(args[1])
	if err != nil {
		fatal("invalid disk UUID: " + err.Error())
	}
	_, setIdx, diskIdx, err := xlrecover.DiskIndex(doc, disk)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("\n%s is set %d, disk %d\n", disk, setIdx, diskIdx)
}

func setWidth(sets [][]uuid.UUID) int {
	if len(sets) == 0 {
		return 0
	}
	return len(sets[0])
}
