package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/BaSui01/submind/orchestrator"
	"github.com/BaSui01/submind/persona"
	"github.com/BaSui01/submind/termination"
	"github.com/BaSui01/submind/types"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// 🎨 终端输出
// =============================================================================

// namedColors 配置中的颜色名到 ANSI 颜色
var namedColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
	"gray":    "8",
	"grey":    "8",
}

// colorFor 解析颜色名，未知名称原样交给 lipgloss（支持 "#RRGGBB" 和数字）
func colorFor(name string) lipgloss.Color {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := namedColors[strings.TrimPrefix(name, "bright_")]; ok {
		if strings.HasPrefix(name, "bright_") && c != "8" {
			return lipgloss.Color(fmt.Sprint(8 + int(c[0]-'0')))
		}
		return lipgloss.Color(c)
	}
	if name == "" {
		return lipgloss.Color("7")
	}
	return lipgloss.Color(name)
}

// Printer 把讨论事件渲染到终端
type Printer struct {
	out      io.Writer
	speakers map[string]lipgloss.Style
	icons    map[string]string
	system   lipgloss.Style
	title    lipgloss.Style
	faint    lipgloss.Style
	failure  lipgloss.Style
}

// NewPrinter creates a printer styling each persona with its display color.
// Colors are dropped automatically when out is not a terminal.
func NewPrinter(out io.Writer, personas []persona.Persona) *Printer {
	r := lipgloss.NewRenderer(out)
	p := &Printer{
		out:      out,
		speakers: make(map[string]lipgloss.Style, len(personas)),
		icons:    make(map[string]string, len(personas)),
		system:   r.NewStyle().Italic(true).Foreground(lipgloss.Color("8")),
		title:    r.NewStyle().Bold(true).Underline(true),
		faint:    r.NewStyle().Faint(true),
		failure:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
	}
	for _, ps := range personas {
		p.speakers[ps.ID] = r.NewStyle().Bold(true).Foreground(colorFor(ps.Display.Color))
		p.icons[ps.ID] = ps.Display.Icon
	}
	return p
}

func (p *Printer) speaker(id string) string {
	label := id
	if icon := p.icons[id]; icon != "" {
		label = icon + " " + id
	}
	if st, ok := p.speakers[id]; ok {
		return st.Render(label)
	}
	return label
}

// Event 渲染单个讨论事件
func (p *Printer) Event(ev orchestrator.Event, maxRounds int) {
	switch ev.Type {
	case orchestrator.EventDiscussionStarted:
		fmt.Fprintln(p.out, p.faint.Render("discussion "+ev.DiscussionID))
	case orchestrator.EventRoundStarted:
		fmt.Fprintf(p.out, "\n%s\n", p.title.Render(termination.Progress(ev.Round, maxRounds)))
	case orchestrator.EventPersonaInvoked:
		fmt.Fprintln(p.out, p.faint.Render(ev.Persona+" is thinking..."))
	case orchestrator.EventPersonaResponded:
		if ev.Message != nil {
			fmt.Fprintf(p.out, "%s: %s\n", p.speaker(ev.Persona), ev.Message.Content)
		}
	case orchestrator.EventPersonaError:
		fmt.Fprintln(p.out, p.failure.Render(fmt.Sprintf("%s failed: %s", ev.Persona, ev.Error)))
	case orchestrator.EventTerminated:
		text := "Discussion terminated: " + ev.Detail
		if ev.Message != nil {
			text = ev.Message.Content
		}
		fmt.Fprintf(p.out, "\n%s\n", p.system.Render(text))
	case orchestrator.EventDiscussionCompleted:
		if ev.Summary != nil {
			p.Summary(ev.Summary)
		}
	case orchestrator.EventDiscussionCancelled:
		fmt.Fprintf(p.out, "\n%s\n", p.system.Render("Discussion cancelled: "+ev.Detail))
	case orchestrator.EventDiscussionFailed:
		fmt.Fprintf(p.out, "\n%s\n", p.failure.Render("Discussion failed: "+ev.Error))
	}
}

// Summary 输出讨论摘要
func (p *Printer) Summary(s *orchestrator.Summary) {
	fmt.Fprintf(p.out, "\n%s\n", p.title.Render("Summary"))
	fmt.Fprintf(p.out, "  rounds:    %d\n", s.Rounds)
	if s.Reason != "" {
		fmt.Fprintf(p.out, "  reason:    %s\n", s.Reason)
	}
	fmt.Fprintf(p.out, "  responses: %d (%d failed)\n", s.Responses(), s.Failures)
	for _, id := range s.Participants {
		fmt.Fprintf(p.out, "    %s: %d\n", p.speaker(id), s.SpeakerCounts[id])
	}
	fmt.Fprintf(p.out, "  tokens:    ~%d\n", s.Tokens)
	fmt.Fprintf(p.out, "  duration:  %s\n", s.Duration.Round(time.Millisecond))
}

// Files 输出导出文件路径
func (p *Printer) Files(files map[string]string) {
	for format, path := range files {
		fmt.Fprintln(p.out, p.faint.Render(fmt.Sprintf("exported %s: %s", format, path)))
	}
}

// =============================================================================
// 💬 run 命令
// =============================================================================

// runner 驱动 CLI 中的讨论
type runner struct {
	app      *App
	personas []persona.Persona
	cfg      orchestrator.Config
	printer  *Printer
}

// discuss 运行一次讨论。Ctrl-C 只取消当前讨论。
func (r *runner) discuss(parent context.Context, prompt string) (*orchestrator.Summary, error) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	d, err := r.app.orch.Start(ctx, prompt, r.personas, r.cfg)
	if err != nil {
		return nil, err
	}
	s, runErr := d.Run(func(ev orchestrator.Event) {
		r.printer.Event(ev, r.cfg.MaxRounds)
	})
	r.printer.Files(r.app.archiver.Archive(context.WithoutCancel(ctx), d.Report()))
	return s, runErr
}

// interactive 逐行读取问题，直到 quit/exit/q 或输入结束
func (r *runner) interactive(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}
		if _, err := r.discuss(ctx, line); err != nil && !reported(err) {
			fmt.Fprintln(out, r.printer.failure.Render(err.Error()))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// reported 判断错误是否已经通过结束事件输出
func reported(err error) bool {
	code := types.GetErrorCode(err)
	return code == types.ErrDiscussionCancel || code == types.ErrDiscussionFailed
}
