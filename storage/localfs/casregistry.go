package localfs

import (
	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/storage"
	"xdao.co/bloom/storage/casregistry"
)

// SettingDir is the setting (and flag) naming the store directory.
const SettingDir = "localfs-dir"

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem CAS (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageTest,
		Settings: []casregistry.Setting{
			{Key: SettingDir, Usage: "LocalFS CAS directory (for --backend=localfs)"},
		},
		Open: func(settings map[string]string) (storage.CAS, func() error, error) {
			dir := settings[SettingDir]
			if dir == "" {
				return nil, nil, bloomerr.New(bloomerr.KindConfig, "BLOOM-LFS-001", "localfs: missing "+SettingDir)
			}
			cas, err := New(dir)
			if err != nil {
				return nil, nil, err
			}
			return cas, nil, nil
		},
	})
}
