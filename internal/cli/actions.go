package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mailpouch/mailpouch/internal/app"
	"github.com/mailpouch/mailpouch/internal/domain"
)

// reportBatch prints the per-id outcome of a mutation batch. Failed ids
// are reported but never abort the command; the succeeded ones are
// already applied locally and queued for the server.
func reportBatch(res app.BatchResult, verb string) error {
	if jsonFlag {
		return printJSON(toJSONBatch(res))
	}
	if len(res.OK) > 0 {
		fmt.Printf("%s %d conversation(s).\n", verb, len(res.OK))
	}
	for id, err := range res.Failed {
		fmt.Printf("failed %s: %v\n", id, err)
	}
	return res.Err()
}

func newMarkReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-read <conversation-id>...",
		Short: "Mark conversations as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			res := s.mutator().MarkRead(cmd.Context(), s.userID, args)
			return reportBatch(res, "Marked read")
		},
	}
}

func newMarkUnreadCmd() *cobra.Command {
	var locationFlag string

	cmd := &cobra.Command{
		Use:   "mark-unread <conversation-id>...",
		Short: "Mark conversations as unread",
		Long:  "Flips the newest read message of each conversation under the given location back to unread.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			res := s.mutator().MarkUnread(cmd.Context(), s.userID, args, locationFlag)
			return reportBatch(res, "Marked unread")
		},
	}

	cmd.Flags().StringVar(&locationFlag, "location", domain.LabelInbox, "location the conversations are viewed under")
	return cmd
}

func newStarCmd() *cobra.Command {
	var removeFlag bool

	cmd := &cobra.Command{
		Use:   "star <conversation-id>...",
		Short: "Star or unstar conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			m := s.mutator()
			if removeFlag {
				return reportBatch(m.Unstar(cmd.Context(), s.userID, args), "Unstarred")
			}
			return reportBatch(m.Star(cmd.Context(), s.userID, args), "Starred")
		},
	}

	cmd.Flags().BoolVar(&removeFlag, "remove", false, "remove the star instead of adding it")
	return cmd
}

func newLabelCmd() *cobra.Command {
	var addFlag, removeFlag string

	cmd := &cobra.Command{
		Use:   "label <conversation-id>...",
		Short: "Add or remove a label on conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addFlag == "" && removeFlag == "" {
				return fmt.Errorf("one of --add or --remove is required")
			}
			if addFlag != "" && removeFlag != "" {
				return fmt.Errorf("--add and --remove are mutually exclusive")
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			m := s.mutator()
			if addFlag != "" {
				return reportBatch(m.Label(cmd.Context(), s.userID, args, addFlag), "Labeled")
			}
			return reportBatch(m.Unlabel(cmd.Context(), s.userID, args, removeFlag), "Unlabeled")
		},
	}

	cmd.Flags().StringVar(&addFlag, "add", "", "label ID to add")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "label ID to remove")
	return cmd
}

func newMoveCmd() *cobra.Command {
	var toFlag string

	cmd := &cobra.Command{
		Use:   "move <conversation-id>...",
		Short: "Move conversations to a folder",
		Long:  "Files each conversation's messages into the destination folder, stripping other exclusive locations.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if toFlag == "" {
				return fmt.Errorf("--to is required")
			}

			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			res := s.mutator().MoveToFolder(cmd.Context(), s.userID, args, toFlag)
			return reportBatch(res, "Moved")
		},
	}

	cmd.Flags().StringVar(&toFlag, "to", "", "destination folder ID")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var fromFlag string

	cmd := &cobra.Command{
		Use:   "delete <conversation-id>...",
		Short: "Delete conversations from a folder",
		Long:  "Removes each conversation's messages filed under the given folder; the conversation itself goes when no messages remain.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			res := s.mutator().Delete(cmd.Context(), s.userID, args, fromFlag)
			return reportBatch(res, "Deleted")
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", domain.LabelInbox, "folder the conversations are viewed under")
	return cmd
}
