package main

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/TracklistDNA/internal/segment"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
	"github.com/himanishpuri/TracklistDNA/pkg/tracklistdna"
	"github.com/himanishpuri/TracklistDNA/pkg/utils"
)

func newIdentifyCommand(cc *commandContext) *cobra.Command {
	var (
		workers    int
		windowSec  int
		overlapSec int
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "identify <youtube-url | audio-file>",
		Short: "Recognize every track in a recording and store the tracklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var mu sync.Mutex
			extra := []tracklistdna.Option{
				tracklistdna.WithWindow(windowSec*1000, overlapSec*1000),
				tracklistdna.WithTimeout(timeout),
				tracklistdna.WithProgress(func(done, total int) {
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintf(out, "\r   Recognized %d/%d segments", done, total)
				}),
			}
			if workers > 0 {
				extra = append(extra, tracklistdna.WithWorkers(workers))
			}

			fmt.Fprintln(out, "🔧 Initializing service...")
			svc, err := cc.service(extra...)
			if err != nil {
				return err
			}
			defer svc.Close()

			fmt.Fprintf(out, "🎧 Identifying tracks in %s\n", args[0])
			fmt.Fprintln(out, "   This may take a while for long recordings")

			start := time.Now()
			tl, err := svc.Identify(cmd.Context(), args[0])
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("identification failed: %w", err)
			}

			fmt.Fprintf(out, "✅ Finished in %s\n", formatDuration(time.Since(start)))
			printTracklist(out, tl)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent recognition requests (0 = default)")
	cmd.Flags().IntVar(&windowSec, "window", segment.DefaultWindowMs/1000, "Segment length in seconds")
	cmd.Flags().IntVar(&overlapSec, "overlap", segment.DefaultOverlapMs/1000, "Overlap between segments in seconds")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the run after this long (0 = no limit)")
	return cmd
}

func newShowCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <source-key | youtube-url>",
		Short: "Print a stored tracklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cc.storage()
			if err != nil {
				return err
			}
			defer store.Close()

			tl, err := store.GetTracklist(utils.SourceKey(args[0]))
			if errors.Is(err, models.ErrTracklistNotFound) {
				return fmt.Errorf("no tracklist stored for %s", args[0])
			}
			if err != nil {
				return err
			}
			printTracklist(cmd.OutOrStdout(), tl)
			return nil
		},
	}
}

func newListCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored tracklists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cc.storage()
			if err != nil {
				return err
			}
			defer store.Close()

			tracklists, err := store.ListTracklists()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tracklists) == 0 {
				fmt.Fprintln(out, "📭 No tracklists stored")
				return nil
			}
			fmt.Fprintf(out, "📚 Found %d tracklist(s):\n\n", len(tracklists))
			for i, tl := range tracklists {
				fmt.Fprintf(out, "%d. %s\n", i+1, tl.SourceKey)
				fmt.Fprintf(out, "   Tracks: %d | Updated: %s\n", len(tl.Tracks), tl.UpdatedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
}

func newDeleteCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <source-key | youtube-url>",
		Short: "Delete a stored tracklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cc.storage()
			if err != nil {
				return err
			}
			defer store.Close()

			key := utils.SourceKey(args[0])
			if err := store.DeleteTracklist(key); err != nil {
				if errors.Is(err, models.ErrTracklistNotFound) {
					return fmt.Errorf("no tracklist stored for %s", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Deleted tracklist %s\n", key)
			return nil
		},
	}
}

func printTracklist(w io.Writer, tl *models.Tracklist) {
	if len(tl.Tracks) == 0 {
		fmt.Fprintf(w, "\n❌ No tracks recognized in %s\n", tl.SourceKey)
		return
	}

	fmt.Fprintf(w, "\n🎵 Tracklist for %s (%d tracks):\n\n", tl.SourceKey, len(tl.Tracks))
	for i, t := range tl.Tracks {
		fmt.Fprintf(w, "%d. \"%s\" by %s\n", i+1, t.Title, t.Artist)
		fmt.Fprintf(w, "   Confidence: %.0f%%\n", t.Confidence)
		if t.Links.Spotify != "" {
			fmt.Fprintf(w, "   Spotify: %s\n", t.Links.Spotify)
		}
		if t.Links.Deezer != "" {
			fmt.Fprintf(w, "   Deezer:  %s\n", t.Links.Deezer)
		}
		if t.Links.YouTube != "" {
			fmt.Fprintf(w, "   YouTube: %s\n", t.Links.YouTube)
		}
	}
}
