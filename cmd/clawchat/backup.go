package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"clawchat/internal/config"
	"clawchat/internal/domain"
	"clawchat/internal/storage"

	"github.com/spf13/cobra"
)

// dumpName is the archive entry holding every stored key.
const dumpName = "kv.json"

const keyPrefix = "clawchat_"

func backupCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up ClawChat data (sessions, messages, theme + config)",
		Long: `Creates a compressed .tar.gz archive with a JSON dump of every stored
key and the configuration file. Works with any storage driver.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.ExpandPath(resolveConfigPath())
			cfg := loadConfig()

			if outputPath == "" {
				backupDir := filepath.Join(cfg.General.DataDir, "backups")
				if err := os.MkdirAll(backupDir, 0o755); err != nil {
					return fmt.Errorf("cannot create backup directory: %w", err)
				}
				ts := time.Now().Format("20060102-150405")
				outputPath = filepath.Join(backupDir, fmt.Sprintf("clawchat-backup-%s.tar.gz", ts))
			}

			ctx := context.Background()
			kv, err := storage.Open(cfg.Storage, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer kv.Close()

			dump, err := dumpKV(ctx, kv)
			if err != nil {
				return fmt.Errorf("read storage: %w", err)
			}
			data, err := json.MarshalIndent(dump, "", "  ")
			if err != nil {
				return err
			}

			entries := map[string][]byte{dumpName: data}
			if raw, err := os.ReadFile(cfgPath); err == nil {
				entries[filepath.Base(cfgPath)] = raw
			}

			if err := createTarGz(outputPath, entries); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			fmt.Printf("Backup created: %s\n", outputPath)
			fmt.Printf("Keys included: %d\n", len(dump))
			for name, b := range entries {
				fmt.Printf("  - %s (%s)\n", name, humanSize(int64(len(b))))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: <dataDir>/backups/clawchat-backup-<timestamp>.tar.gz)")
	return cmd
}

func restoreCmd() *cobra.Command {
	var inputPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore [file]",
		Short: "Restore ClawChat data from a backup archive",
		Long: `Restores stored keys and the configuration file from a .tar.gz
archive created by 'clawchat backup'.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inputPath == "" && len(args) > 0 {
				inputPath = args[0]
			}
			if inputPath == "" {
				return fmt.Errorf("specify a backup file: clawchat restore <file.tar.gz>")
			}

			cfgPath := config.ExpandPath(resolveConfigPath())
			entries, err := readTarGz(inputPath)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			if !force {
				if _, err := os.Stat(cfgPath); err == nil {
					fmt.Printf("WARNING: This will overwrite existing data.\n")
					fmt.Printf("  Config: %s\n", cfgPath)
					fmt.Printf("Use --force to skip this warning.\n")
					return fmt.Errorf("restore aborted (use --force to proceed)")
				}
			}

			var restored []string
			for name, data := range entries {
				if name == dumpName {
					continue
				}
				if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
					return fmt.Errorf("write %s: %w", cfgPath, err)
				}
				restored = append(restored, cfgPath)
			}

			// Storage is opened with the restored config.
			cfg := loadConfig()
			if data, ok := entries[dumpName]; ok {
				var dump map[string]string
				if err := json.Unmarshal(data, &dump); err != nil {
					return fmt.Errorf("corrupt %s: %w", dumpName, err)
				}
				kv, err := storage.Open(cfg.Storage, logger)
				if err != nil {
					return fmt.Errorf("open storage: %w", err)
				}
				defer kv.Close()
				ctx := context.Background()
				for k, v := range dump {
					if err := kv.Set(ctx, k, v); err != nil {
						return fmt.Errorf("restore key %s: %w", k, err)
					}
				}
				restored = append(restored, fmt.Sprintf("%d stored keys", len(dump)))
			}

			fmt.Printf("Restore completed from: %s\n", inputPath)
			for _, f := range restored {
				fmt.Printf("  - %s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "backup file to restore from")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing data without warning")
	return cmd
}

func dumpKV(ctx context.Context, kv domain.KVStore) (map[string]string, error) {
	keys, err := kv.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}
	dump := make(map[string]string, len(keys))
	for _, k := range keys {
		v, ok, err := kv.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if ok {
			dump[k] = v
		}
	}
	return dump, nil
}

// createTarGz writes the named entries into a .tar.gz archive.
func createTarGz(outputPath string, entries map[string][]byte) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	gzWriter := gzip.NewWriter(outFile)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	now := time.Now()
	for name, data := range entries {
		header := &tar.Header{
			Name:    name,
			Mode:    0o600,
			Size:    int64(len(data)),
			ModTime: now,
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
		if _, err := io.Copy(tarWriter, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("add %s: %w", name, err)
		}
	}
	return nil
}

// readTarGz returns the regular-file entries of a backup archive by base name.
func readTarGz(archivePath string) (map[string][]byte, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("not a valid gzip file: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	entries := make(map[string][]byte)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tarReader, 256<<20))
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", header.Name, err)
		}
		entries[filepath.Base(header.Name)] = data
	}
	return entries, nil
}

func humanSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
