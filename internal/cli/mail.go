package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mailpouch/mailpouch/internal/app"
	"github.com/mailpouch/mailpouch/internal/domain"
	"github.com/mailpouch/mailpouch/internal/remote"
	"github.com/mailpouch/mailpouch/internal/store"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize Gmail access for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.client.Authenticate(cmd.Context()); err != nil {
				return err
			}
			email, err := s.client.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Authorized %s.\n", email)
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	var fullFlag bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the local cache with the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			svc := app.NewSyncService(s.db, s.client, s.userID)
			if fullFlag {
				return svc.InitialSync(cmd.Context(), s.cfg.Sync.InitialCount)
			}
			return svc.IncrementalSync(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&fullFlag, "full", false, "force a full sync instead of an incremental one")
	return cmd
}

func newListCmd() *cobra.Command {
	var labelFlag, searchFlag string
	var limitFlag int
	var refreshFlag bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Long:  "List conversations in a label view (defaults to the Inbox), optionally fetching a fresh page first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if refreshFlag {
				convs := app.NewConversations(s.db, s.client)
				q := remote.Query{
					UserID:   s.userID,
					LabelID:  labelFlag,
					Search:   searchFlag,
					PageSize: s.cfg.Fetch.PageSize,
				}
				if err := convs.Refresh(cmd.Context(), q); err != nil {
					return err
				}
			}

			list, err := s.db.ListConversations(cmd.Context(), store.ListConversationOptions{
				UserID:  s.userID,
				LabelID: labelFlag,
				Search:  searchFlag,
				Limit:   limitFlag,
			})
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONConversations(list, labelFlag))
			}

			if len(list) == 0 {
				fmt.Println("No conversations found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UNREAD\tSUBJECT\tDATE\tMSGS\tID")
			for _, c := range list {
				unread := " "
				if c.NumUnread > 0 {
					unread = "*"
				}
				subject := c.Subject
				if len(subject) > 50 {
					subject = subject[:47] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					unread, subject,
					time.Unix(c.ContextTime(labelFlag), 0).Format("Jan 2, 2006"),
					c.NumMessages, c.ID,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&labelFlag, "label", domain.LabelInbox, "label view to list")
	cmd.Flags().StringVar(&searchFlag, "search", "", "filter by subject")
	cmd.Flags().IntVar(&limitFlag, "limit", 25, "max conversations to show")
	cmd.Flags().BoolVar(&refreshFlag, "refresh", false, "fetch a fresh page before listing")
	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			conv, err := s.db.GetConversation(cmd.Context(), s.userID, args[0])
			if err != nil {
				return fmt.Errorf("failed to get conversation: %w", err)
			}
			msgs, err := s.db.ListConversationMessages(cmd.Context(), s.userID, args[0])
			if err != nil {
				return fmt.Errorf("failed to list messages: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONConversationDetail(conv, msgs))
			}

			fmt.Printf("Subject: %s\n", conv.Subject)
			fmt.Printf("Conversation ID: %s\n", conv.ID)
			fmt.Printf("Messages: %d (%d unread)\n", conv.NumMessages, conv.NumUnread)
			fmt.Println()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UNREAD\tSTAR\tDATE\tLABELS\tMESSAGE_ID")
			for _, m := range msgs {
				unread, star := " ", " "
				if !m.IsRead {
					unread = "*"
				}
				if m.IsStarred {
					star = "+"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\n",
					unread, star,
					time.Unix(m.Time, 0).Format("Jan 2, 2006 15:04"),
					m.LabelIDs, m.ID,
				)
			}
			return w.Flush()
		},
	}
}

func newLabelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List cached labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			labels, err := s.db.ListLabels(cmd.Context(), s.userID)
			if err != nil {
				return fmt.Errorf("failed to list labels: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONLabels(labels))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tEXCLUSIVE")
			for _, l := range labels {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", l.ID, l.Name, l.Type, l.Exclusive)
			}
			return w.Flush()
		},
	}
}

func newCountersCmd() *cobra.Command {
	var refreshFlag bool

	cmd := &cobra.Command{
		Use:   "counters",
		Short: "Show per-label unread counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			if refreshFlag {
				if err := app.NewCounters(s.db, s.client).Refresh(cmd.Context(), s.userID); err != nil {
					return err
				}
			}

			counters, err := s.db.ListUnreadCounters(cmd.Context(), s.userID)
			if err != nil {
				return fmt.Errorf("failed to list counters: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONCounters(counters))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "LABEL\tTYPE\tUNREAD")
			for _, c := range counters {
				fmt.Fprintf(w, "%s\t%s\t%d\n", c.LabelID, c.Type, c.Count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&refreshFlag, "refresh", false, "fetch fresh counters before listing")
	return cmd
}

func newOutboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outbox",
		Short: "List mutations waiting to reach the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			jobs, err := s.db.ListPendingJobs(cmd.Context(), s.userID)
			if err != nil {
				return fmt.Errorf("failed to list pending jobs: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONJobs(jobs))
			}

			if len(jobs) == 0 {
				fmt.Println("Outbox is empty.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tIDS\tENQUEUED\tJOB_ID")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
					j.Kind, len(j.IDs), j.CreatedAt.Format(time.RFC3339), j.ID)
			}
			return w.Flush()
		},
	}
}
