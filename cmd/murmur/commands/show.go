package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dyluth/murmur/internal/chat"
	"github.com/dyluth/murmur/internal/filter"
	"github.com/dyluth/murmur/internal/node"
	"github.com/dyluth/murmur/internal/printer"
	"github.com/dyluth/murmur/internal/store"
	"github.com/dyluth/murmur/internal/timespec"
	"github.com/spf13/cobra"
)

var (
	showSince string
	showUntil string
	showRole  string
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List sessions this node has hosted or joined",
	Long: `List the sessions recorded in the local store, most recently created first.

Time filters apply to when a session was last opened and accept:
  • Relative durations: 1h, 30m, 2h30m
  • Days: 7d
  • Absolute RFC3339 timestamps: 2026-10-01T00:00:00Z`,
	Example: `  # Sessions opened in the last day
  murmur show --since 1d

  # Sessions last opened more than a week ago
  murmur show --until 7d

  # Only sessions this node created
  murmur show --role host`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showSince, "since", "", "Only sessions opened after this time")
	showCmd.Flags().StringVar(&showUntil, "until", "", "Only sessions opened before this time")
	showCmd.Flags().StringVar(&showRole, "role", "", "Only sessions with this role: host or guest")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	rng, err := timespec.ParseRange(showSince, showUntil, time.Now())
	if err != nil {
		return printer.Error(
			"invalid time filter",
			err.Error(),
			[]string{"Use a duration (1h), days (7d) or an RFC3339 timestamp"},
		)
	}

	if showRole != "" && showRole != string(chat.RoleHost) && showRole != string(chat.RoleGuest) {
		return printer.Error(
			"invalid role filter",
			fmt.Sprintf("unknown role %q", showRole),
			[]string{"Use --role host or --role guest"},
		)
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer env.logger.Sync()

	st, err := node.OpenStore(env.cfg)
	if err != nil {
		return printer.Error(
			"failed to open local store",
			err.Error(),
			[]string{"Only one murmur process can use a data directory at a time"},
		)
	}
	defer st.Close()

	return showDocuments(printer.Stdout, st, filter.Criteria{Opened: rng, Role: showRole})
}

// showDocuments prints the stored documents matching criteria.
func showDocuments(w io.Writer, st *store.Store, criteria filter.Criteria) error {
	docs, err := st.ListDocuments()
	if err != nil {
		return printer.Error("failed to list sessions", err.Error(), nil)
	}

	formatDocuments(w, criteria.Apply(docs), time.Now())
	return nil
}

// formatDocuments writes docs as a table.
// Returns the number of documents formatted.
func formatDocuments(w io.Writer, docs []store.DocumentRecord, now time.Time) int {
	if len(docs) == 0 {
		fmt.Fprintln(w, "No sessions found")
		return 0
	}

	fmt.Fprintf(w, "%-8s  %-5s  %-16s  %s\n", "ID", "ROLE", "CREATED", "LAST OPENED")
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		strings.Repeat("-", 8), strings.Repeat("-", 5), strings.Repeat("-", 16), strings.Repeat("-", 16))

	for _, d := range docs {
		fmt.Fprintf(w, "%-8s  %-5s  %-16s  %s\n",
			shortID(d.ID),
			d.Role,
			humanize.RelTime(time.UnixMilli(d.CreatedAtMs), now, "ago", "from now"),
			humanize.RelTime(time.UnixMilli(d.LastOpenedMs), now, "ago", "from now"),
		)
	}

	countMsg := "session"
	if len(docs) != 1 {
		countMsg = "sessions"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(docs), countMsg)

	return len(docs)
}
