// Package status renders membership and quorum state for the operator.
package status

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/audioactive/ProxmoxVE/pkg/cluster"
)

// Render writes the roster as a table followed by the quorum line.
func Render(w io.Writer, ms cluster.Membership) {
	if ms.Count() == 0 {
		fmt.Fprintln(w, "This node is not part of any cluster.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Name", "Votes", ""})
	for _, m := range ms.Members {
		marker := ""
		if m.Local {
			marker = "local"
		}
		name := m.Name
		if m.Addr != "" && m.Addr != m.Name {
			name = fmt.Sprintf("%s (%s)", m.Name, m.Addr)
		}
		table.Append([]string{strconv.Itoa(m.ID), name, strconv.Itoa(m.Votes), marker})
	}
	table.Render()

	if ms.Quorate {
		fmt.Fprintf(w, "Quorate: yes (%d members)\n", ms.Count())
	} else {
		fmt.Fprintf(w, "Quorate: NO (%d members)\n", ms.Count())
	}
}

// RenderUnavailable writes an explicit placeholder when the protocol
// service cannot answer; a status failure never fails the invocation.
func RenderUnavailable(w io.Writer, err error) {
	fmt.Fprintf(w, "No cluster status available: %v\n", err)
}

// Report queries the protocol service and renders whatever it can.
func Report(ctx context.Context, w io.Writer, svc cluster.ProtocolService) {
	ms, err := svc.Status(ctx)
	if err != nil {
		RenderUnavailable(w, err)
		return
	}
	Render(w, ms)
}
