package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DecodeConfig configures a decode run when --config is used instead of
// --disks on the command line.
type DecodeConfig struct {
	Disks        []string `yaml:"disks"`
	VerifyBitrot bool     `yaml:"verify_bitrot"`
}

func loadDecodeConfig(path string) (*DecodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &DecodeConfig{
		VerifyBitrot: true,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.Disks) == 0 {
		return nil, fmt.Errorf("config: disks list is empty")
	}
	return cfg, nil
}
