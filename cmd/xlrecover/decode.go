package main

import (
	"os"
	"strings"

	"github.com/dialohq/xlrecover"
)

func runDecode(args []string) {
	var disksFlag, configFlag string
	var positional []string

	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "--disks="):
			disksFlag = strings.TrimPrefix(a, "--disks=")
		case strings.HasPrefix(a, "--config="):
			configFlag = strings.TrimPrefix(a, "--config=")
		default:
			positional = append(positional, a)
		}
	}

	if len(positional) < 4 {
		fatal("decode requires: --disks=<r1,r2,...> <sidecar-file> <bucket> <key> <out-file>")
	}
	sidecarPath, bucket, key, outPath := positional[0], positional[1], positional[2], positional[3]

	var disks []string
	verify := true
	if configFlag != "" {
		cfg, err := loadDecodeConfig(configFlag)
		if err != nil {
			fatal(err.Error())
		}
		disks = cfg.Disks
		verify = cfg.VerifyBitrot
	} else if disksFlag != "" {
		disks = strings.Split(disksFlag, ",")
	} else if env := envOrDefault("XLRECOVER_DISKS", ""); env != "" {
		disks = strings.Split(env, ",")
	} else {
		fatal("decode requires --disks, --config, or XLRECOVER_DISKS")
	}

	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		fatal(err.Error())
	}
	meta, err := xlrecover.ParseSidecar(data, bucket, key)
	if err != nil {
		fatal(err.Error())
	}

	src := xlrecover.NewFileSystemSource(disks)
	src.SetVerbose(verbose)

	out, err := os.Create(outPath)
	if err != nil {
		fatal(err.Error())
	}
	defer out.Close()

	opts := xlrecover.DecodeOptions{SkipBitrotCheck: !verify}
	if err := xlrecover.DecodeObjectTo(out, meta, src, opts); err != nil {
		fatal(err.Error())
	}
}
