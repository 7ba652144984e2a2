package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/keepsake/internal/backup"
	"github.com/hyperengineering/keepsake/internal/collection"
	"github.com/hyperengineering/keepsake/internal/store"
)

var dataJSONOutput bool

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Inspect and maintain the data files",
	Long:  "Inspect, upgrade and back up the JSON documents without running the server.",
}

var dataInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show how each document loads and what it holds",
	Args:  cobra.NoArgs,
	RunE:  runDataInfo,
}

var dataMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite both documents in the current format",
	Args:  cobra.NoArgs,
	RunE:  runDataMigrate,
}

var dataBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Upload both documents to the configured bucket once",
	Args:  cobra.NoArgs,
	RunE:  runDataBackup,
}

func init() {
	dataCmd.PersistentFlags().BoolVar(&dataJSONOutput, "json", false,
		"Output in JSON format")

	dataCmd.AddCommand(dataInfoCmd)
	dataCmd.AddCommand(dataMigrateCmd)
	dataCmd.AddCommand(dataBackupCmd)
}

type documentInfo struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	SizeBytes  int64    `json:"size_bytes"`
	Defaulted  bool     `json:"defaulted"`
	Reason     string   `json:"reason,omitempty"`
	Migrations []string `json:"migrations"`
}

func describe(name string, info store.LoadInfo) documentInfo {
	d := documentInfo{
		Name:       name,
		Path:       info.Path,
		Defaulted:  info.Defaulted,
		Reason:     info.Reason,
		Migrations: info.Migrations,
	}
	if d.Migrations == nil {
		d.Migrations = []string{}
	}
	if st, err := os.Stat(info.Path); err == nil {
		d.SizeBytes = st.Size()
	}
	return d
}

func runDataInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}

	docs := []documentInfo{
		describe(collection.DocumentPrimary, a.loads[collection.DocumentPrimary]),
		describe(collection.DocumentMusic, a.loads[collection.DocumentMusic]),
	}
	counts := a.svc.Counts()

	out := cmd.OutOrStdout()
	if dataJSONOutput {
		return printJSON(out, map[string]any{
			"documents": docs,
			"counts":    counts,
			"users":     len(a.svc.Users()),
		})
	}

	tw := newTabWriter(out)
	fmt.Fprintln(tw, "DOCUMENT\tPATH\tSIZE\tSTATUS\tMIGRATIONS")
	for _, d := range docs {
		status := "ok"
		if d.Defaulted {
			status = "defaulted (" + d.Reason + ")"
		}
		migrations := "-"
		if len(d.Migrations) > 0 {
			migrations = strings.Join(d.Migrations, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Path, formatSize(d.SizeBytes), status, migrations)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nIdeas: %d  Memories: %d  Notes: %d  Gallery: %d  Music: %d  Users: %d\n",
		counts.Ideas, counts.Memories, counts.Notes, counts.Gallery, counts.Music, len(a.svc.Users()))
	return nil
}

func runDataMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}

	if err := a.doc.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", collection.DocumentPrimary, err)
	}
	if err := a.music.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", collection.DocumentMusic, err)
	}

	out := cmd.OutOrStdout()
	for _, name := range []string{collection.DocumentPrimary, collection.DocumentMusic} {
		info := a.loads[name]
		switch {
		case info.Defaulted:
			fmt.Fprintf(out, "%s: wrote defaults to %s (%s)\n", name, info.Path, info.Reason)
		case len(info.Migrations) > 0:
			fmt.Fprintf(out, "%s: applied %s\n", name, strings.Join(info.Migrations, ", "))
		default:
			fmt.Fprintf(out, "%s: already current\n", name)
		}
	}
	return nil
}

func runDataBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Backup.Bucket == "" {
		return fmt.Errorf("backup: %w (set backup.bucket)", backup.ErrNotConfigured)
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}

	job, uploader, err := a.backupJob(cfg.Backup)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()
	if err := job.Run(ctx); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range []string{collection.DocumentPrimary, collection.DocumentMusic} {
		url, expires, err := uploader.PresignedURL(ctx, name)
		if err != nil {
			return fmt.Errorf("presign %s: %w", name, err)
		}
		fmt.Fprintf(out, "%s: %s (expires %s)\n", name, url, expires.Format(time.RFC3339))
	}
	return nil
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
