package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/audioactive/ProxmoxVE/pkg/status"
)

func createCmd() *cobra.Command {
	var addOthers bool

	cmd := &cobra.Command{
		Use:   "create [cluster-name]",
		Short: "Found a new cluster on the local node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(addOthers)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			name := a.cfg.Cluster.Name
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" {
				return fmt.Errorf("a cluster name is required, via argument or cluster.name")
			}

			err = reportedNoOp(a.orch.Create(ctx, name))
			if err == nil && addOthers {
				results, fanErr := a.orch.AddOthers(ctx, a.cfg.PrimaryAddr(), false)
				printPeerResults(results)
				err = fanErr
			}
			if err == nil {
				err = a.maybeApplyTuning(ctx)
			}
			return a.finish(ctx, "create", name, err)
		},
	}

	cmd.Flags().BoolVar(&addOthers, "add-others", false, "Join the remaining configured nodes after creating")
	return cmd
}

func joinCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "join [primary-addr]",
		Short: "Join the local node to the cluster at the primary address",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			primary := a.cfg.PrimaryAddr()
			if len(args) == 1 {
				primary = args[0]
			}
			if primary == "" {
				return fmt.Errorf("a primary address is required, via argument or a primary-role node")
			}

			err = reportedNoOp(a.orch.Join(ctx, primary, force))
			if err == nil {
				err = a.maybeApplyTuning(ctx)
			}
			return a.finish(ctx, "join", primary, err)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Pass the protocol service's force flag when joining")
	return cmd
}

func addOthersCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "add-others [primary-addr]",
		Short: "Join every configured peer that is not yet a member",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(true)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			primary := a.cfg.PrimaryAddr()
			if len(args) == 1 {
				primary = args[0]
			}
			if primary == "" {
				return fmt.Errorf("a primary address is required, via argument or a primary-role node")
			}

			results, err := a.orch.AddOthers(ctx, primary, force)
			printPeerResults(results)
			if err == nil {
				err = a.maybeApplyTuning(ctx)
			}
			return a.finish(ctx, "add-others", primary, err)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Pass the protocol service's force flag to joining peers")
	return cmd
}

func removeNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-node <node-name>",
		Short: "Expel a peer node from the cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			err = a.orch.RemoveNode(ctx, args[0])
			return a.finish(ctx, "remove-node", args[0], err)
		},
	}
}

func leaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Withdraw the local node from the cluster",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := context.Background()

			err = a.orch.Leave(ctx)
			return a.finish(ctx, "leave", a.cfg.Cluster.LocalNode, err)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current membership and quorum state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.close()

			status.Report(context.Background(), os.Stdout, a.svc)
			return nil
		},
	}
}
