package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/alvmarrod/actor-weaver/internal/degrees"
	"github.com/alvmarrod/actor-weaver/internal/memory"
	"github.com/charmbracelet/lipgloss"
)

// maxTitles is how many shared titles are listed per hop
const maxTitles = 3

// Printer writes search results as styled text. Styles degrade to plain
// text when w is not a terminal.
type Printer struct {
	w       io.Writer
	success lipgloss.Style
	failure lipgloss.Style
	name    lipgloss.Style
	movie   lipgloss.Style
	muted   lipgloss.Style
}

// NewPrinter creates a printer writing to w
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		failure: r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		name:    r.NewStyle().Bold(true),
		movie:   r.NewStyle().Foreground(lipgloss.Color("11")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Result prints the connection path, or the search statistics when the
// actors were not connected
func (p *Printer) Result(res *degrees.Result) error {
	var b strings.Builder

	if !res.Found() {
		nodes, edges := res.Graph.GetStats()
		b.WriteString(p.failure.Render(fmt.Sprintf("No connection found between %s and %s within the search depth.",
			displayName(res.Graph, res.Actor1), displayName(res.Graph, res.Actor2))))
		b.WriteString("\n")
		b.WriteString(p.muted.Render(fmt.Sprintf("Searched through %d actors and %d connections.", nodes, edges)))
		b.WriteString("\n")
		_, err := io.WriteString(p.w, b.String())
		return err
	}

	b.WriteString(p.success.Render(fmt.Sprintf("Found a connection with %d degrees of separation!", res.Degrees())))
	b.WriteString("\n\n")

	for _, hop := range res.Hops() {
		first := ""
		if len(hop.Titles) > 0 {
			first = hop.Titles[0]
		}
		fmt.Fprintf(&b, "  %s → %s via %s\n",
			p.name.Render(nodeName(hop.From)),
			p.name.Render(nodeName(hop.To)),
			p.movie.Render("'"+first+"'"))

		if len(hop.Titles) > 1 {
			b.WriteString("    ")
			b.WriteString(p.muted.Render("shared: " + TitleSummary(hop.Titles)))
			b.WriteString("\n")
		}
	}

	if res.Bridged() {
		b.WriteString("\n")
		b.WriteString(p.muted.Render(fmt.Sprintf("%d collaborations were inferred by comparing filmographies.", res.BridgeEdges)))
		b.WriteString("\n")
	}

	_, err := io.WriteString(p.w, b.String())
	return err
}

// Error prints a failed search
func (p *Printer) Error(err error) error {
	_, werr := io.WriteString(p.w, p.failure.Render(err.Error())+"\n")
	return werr
}

// TitleSummary lists up to three titles and counts the rest
func TitleSummary(titles []string) string {
	if len(titles) <= maxTitles {
		return strings.Join(titles, ", ")
	}
	return fmt.Sprintf("%s and %d more", strings.Join(titles[:maxTitles], ", "), len(titles)-maxTitles)
}

func displayName(g *memory.MemoryGraph, id int) string {
	node, ok := g.Node(id)
	if !ok {
		return fmt.Sprintf("#%d", id)
	}
	return nodeName(node)
}

func nodeName(n memory.Node) string {
	if n.Placeholder() {
		return fmt.Sprintf("#%d", n.ID)
	}
	return n.Name
}
