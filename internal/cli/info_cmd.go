package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ethanyzhang/trino-go"
)

func newInfoCmd(opts *options) *cobra.Command {
	var cluster bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the coordinator version and uptime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := opts.session()
			if err != nil {
				return err
			}
			client := opts.client()
			defer client.Close()

			var (
				info  *trino.ServerInfo
				stats *trino.ClusterStats
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) {
				info, err = client.ServerInfo(ctx, session)
				return err
			})
			if cluster {
				g.Go(func() (err error) {
					stats, err = client.ClusterStats(ctx, session)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if opts.output == formatJSON {
				doc := map[string]any{"info": info}
				if stats != nil {
					doc["cluster"] = stats
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}

			fmt.Fprintf(out, "server:      %s\n", session.Server())
			fmt.Fprintf(out, "version:     %s\n", info.NodeVersion.Version)
			fmt.Fprintf(out, "environment: %s\n", info.Environment)
			fmt.Fprintf(out, "coordinator: %t\n", info.Coordinator)
			fmt.Fprintf(out, "starting:    %t\n", info.Starting)
			fmt.Fprintf(out, "uptime:      %s\n", str2duration.String(info.Uptime.Duration))
			if stats == nil {
				return nil
			}
			fmt.Fprintf(out, "running:     %d\n", stats.RunningQueries)
			fmt.Fprintf(out, "queued:      %d\n", stats.QueuedQueries)
			fmt.Fprintf(out, "blocked:     %d\n", stats.BlockedQueries)
			fmt.Fprintf(out, "workers:     %d\n", stats.ActiveWorkers)
			return nil
		},
	}

	cmd.Flags().BoolVar(&cluster, "cluster", false, "Also show cluster statistics from /v1/cluster")
	return cmd
}

func newQueryInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "query-info QUERY_ID",
		Short: "Show the coordinator's record of a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := opts.session()
			if err != nil {
				return err
			}
			client := opts.client()
			defer client.Close()

			info, err := client.QueryInfo(cmd.Context(), session, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if opts.output == formatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintf(out, "query id: %s\nstate:    %s\n", info.QueryID, info.State)
			if info.ErrorCode != nil {
				fmt.Fprintf(out, "error:    %s (%s)\n", info.ErrorCode.Name, info.ErrorCode.Type)
			}
			if s := info.QueryStats; s != nil {
				fmt.Fprintf(out, "elapsed:  %s\ncpu:      %s\ninput:    %d rows, %s\n",
					str2duration.String(s.ElapsedTime.Duration), str2duration.String(s.TotalCpuTime.Duration),
					s.RawInputPositions, s.RawInputDataSize)
			}
			fmt.Fprintf(out, "query:\n  %s\n", info.Query)

			stages := info.Stages()
			if len(stages) == 0 {
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "stage\tstate\ttasks\tcpu\tinput")
			for _, st := range stages {
				tasks, cpu, input := 0, "", ""
				if es := st.ExecutionStats(); es != nil {
					tasks = es.TotalTasks
					cpu = str2duration.String(es.TotalCpuTime.Duration)
					input = es.RawInputDataSize.String()
				}
				state := st.State
				if state == "" && st.LatestAttemptExecutionInfo != nil {
					state = st.LatestAttemptExecutionInfo.State
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", st.ID(), state, tasks, cpu, input)
			}
			return tw.Flush()
		},
	}
}
