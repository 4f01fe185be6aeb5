package speedtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/cubiclesoft/network-speedtest-cli/internal/speedtest/report"
	"github.com/cubiclesoft/network-speedtest-cli/internal/ui"
	"github.com/dustin/go-humanize"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// renderResult prints a human summary of one run: a title, a table of the
// completed phases and the error, if any.
func renderResult(w io.Writer, res report.Result, plain bool) error {
	title := "Speed test against " + net.JoinHostPort(res.Host, strconv.Itoa(res.Port))
	if !plain {
		title = titleStyle.Render(title)
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}

	t := ui.NewTable(
		ui.Column{Header: "Test"},
		ui.Column{Header: "Result", Align: ui.AlignRight},
		ui.Column{Header: "Details"},
	)
	t.Plain = plain

	if res.Latency != nil {
		t.AddRow("Latency", res.Latency.DispAvg, fmt.Sprintf("%d round trips", res.Latency.Iterations))
	}
	if res.Download != nil {
		t.AddRow("Download", res.Download.DispRate, transferDetails(res.Download))
	}
	if res.Upload != nil {
		t.AddRow("Upload", res.Upload.DispRate, transferDetails(res.Upload))
	}
	if res.ServerStats != nil {
		t.AddRow("Server", "",
			fmt.Sprintf("received %s, sent %s", humanize.Bytes(uint64(res.ServerStats.Received)), humanize.Bytes(uint64(res.ServerStats.Sent))))
	}

	if t.Len() > 0 {
		if err := t.Render(w); err != nil {
			return err
		}
	}

	if !res.Success {
		msg := "Error: " + res.Error
		if res.ErrorCode != "" {
			msg += " (" + res.ErrorCode + ")"
		}
		if !plain {
			msg = failStyle.Render(msg)
		}
		if _, err := fmt.Fprintln(w, msg); err != nil {
			return err
		}
	}
	return nil
}

func transferDetails(tr *report.Transfer) string {
	return fmt.Sprintf("%s in %.2f sec", humanize.Bytes(uint64(tr.Size)), tr.Time)
}
