package ipfs

import (
	"xdao.co/bloom/storage"
	"xdao.co/bloom/storage/casregistry"
)

const (
	SettingBin  = "ipfs-bin"
	SettingPath = "ipfs-path"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Local IPFS repository via the Kubo CLI",
		Usage:       casregistry.UsageCLI | casregistry.UsageTest,
		Settings: []casregistry.Setting{
			{Key: SettingBin, Usage: "ipfs binary (for --backend=ipfs, default ipfs on PATH)"},
			{Key: SettingPath, Usage: "IPFS repository path (for --backend=ipfs)"},
		},
		Open: func(settings map[string]string) (storage.CAS, func() error, error) {
			return New(Options{Bin: settings[SettingBin], RepoPath: settings[SettingPath]}), nil, nil
		},
	})
}
