package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/keepsake/internal/store"
)

var galleryKeepNotes bool

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Maintain the gallery",
}

var galleryScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rebuild the gallery list from the upload directory",
	Long: "Scans the gallery directory and replaces the gallery list with what is on disk, newest first. " +
		"The server does the same at startup.",
	Args: cobra.NoArgs,
	RunE: runGalleryScan,
}

func init() {
	galleryScanCmd.Flags().BoolVar(&galleryKeepNotes, "keep-notes", false,
		"Keep notes of images already in the list (default from gallery.keep_notes)")

	galleryCmd.AddCommand(galleryScanCmd)
}

func runGalleryScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}

	keepNotes := cfg.Gallery.KeepNotes
	if cmd.Flags().Changed("keep-notes") {
		keepNotes = galleryKeepNotes
	}

	n, err := a.svc.Gallery.Sync(keepNotes)
	if store.IsPersistence(err) {
		return fmt.Errorf("gallery scanned but not saved: %w", err)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Gallery: %d image(s) in %s\n", n, a.images.Root())
	return nil
}
