package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var checkpointsCmd = &cobra.Command{
	Use:     "checkpoints",
	Aliases: []string{"cp"},
	Short:   "Manage saved machines",
}

var checkpointsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved checkpoints, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := db.List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "no checkpoints")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tN\tW\tR\tLAYOUT\tBYTES\tCREATED")
		for _, cp := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\tv%d\t%d\t%s\n",
				cp.ID, cp.Name, cp.Config.MemorySize, cp.Config.WordSize, cp.Config.ReadHeads,
				cp.LayoutVersion, cp.Size, time.UnixMilli(cp.CreatedAt).Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var checkpointsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete checkpoints",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		for _, id := range args {
			if err := db.Delete(id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			fmt.Fprintf(os.Stderr, "deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	checkpointsCmd.AddCommand(checkpointsListCmd)
	checkpointsCmd.AddCommand(checkpointsDeleteCmd)
}
