package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"blac/storage"
)

var (
	historyLimit  int
	historyOutput string
	historyYes    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past conversations",
	Long: `View, search and export the local transcript archive. Conversations
are recorded when history_enabled is set in the [session] config.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation",
	Long:  `Show every message of a conversation. A unique prefix of the ID is enough.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy search all recorded messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySearch,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Write a conversation to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded conversations",
	Args:  cobra.NoArgs,
	RunE:  runHistoryClear,
}

func init() {
	historySearchCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of matches")
	historyExportCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Output file (default: blac-session-<title>-<time>.json)")
	historyClearCmd.Flags().BoolVarP(&historyYes, "yes", "y", false, "Confirm deletion")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
}

// withArchive loads the app and its archive for the duration of fn.
func withArchive(fn func(*storage.Archive) error) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	archive, err := a.openArchive()
	if err != nil {
		return err
	}
	return fn(archive)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	return withArchive(func(archive *storage.Archive) error {
		sessions, err := archive.ListSessions()
		if err != nil {
			return fmt.Errorf("failed to list conversations: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No conversations found.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tUPDATED")
		_, _ = fmt.Fprintln(w, "--\t-----\t--------\t-------")
		for _, s := range sessions {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				shortID(s.ID), s.Title, s.MessageCount, s.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	})
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withArchive(func(archive *storage.Archive) error {
		msgs, err := archive.Messages(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, msg := range msgs {
			role := "You"
			if msg.Role == "assistant" {
				role = "Assistant"
			}
			fmt.Fprintf(out, "[%d] %s (%s):\n", i+1, role, msg.Timestamp.Local().Format("15:04"))
			for _, src := range msg.Attachments {
				fmt.Fprintf(out, "  [image] %s\n", src)
			}
			fmt.Fprintf(out, "  %s\n\n", msg.Content)
		}
		return nil
	})
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	return withArchive(func(archive *storage.Archive) error {
		matches, err := archive.Search(args[0], historyLimit)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(matches) == 0 {
			fmt.Fprintln(out, "No matches.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "SESSION\tROLE\tWHEN\tTEXT")
		for _, m := range matches {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				shortID(m.SessionID), m.Role, m.Timestamp.Local().Format("2006-01-02 15:04"), m.Preview)
		}
		return w.Flush()
	})
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	return withArchive(func(archive *storage.Archive) error {
		path := historyOutput
		if path == "" {
			title, err := sessionTitle(archive, args[0])
			if err != nil {
				return err
			}
			path = storage.GenerateExportPath(".", title, time.Now())
		}

		if err := archive.ExportJSON(args[0], path); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
		return nil
	})
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	if !historyYes {
		return fmt.Errorf("this deletes every recorded conversation; rerun with --yes to confirm")
	}
	return withArchive(func(archive *storage.Archive) error {
		if err := archive.DeleteAll(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All conversations deleted.")
		return nil
	})
}

// sessionTitle resolves an ID prefix to the session's title.
func sessionTitle(archive *storage.Archive, ref string) (string, error) {
	msgs, err := archive.Messages(ref)
	if err != nil {
		return "", err
	}
	sessions, err := archive.ListSessions()
	if err != nil {
		return "", err
	}
	for _, s := range sessions {
		if len(msgs) > 0 && s.ID == msgs[0].SessionID {
			return s.Title, nil
		}
	}
	return "", nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
