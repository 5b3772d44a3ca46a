package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/Billy-Davies-2/esccup-draft/internal/client"
	"github.com/Billy-Davies-2/esccup-draft/internal/draft"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
)

const usage = `commands:
  show                     print the board; the lifted card is in brackets
  lift <player>            pick up a card (7 or player-7)
  drop <target>            release over team-N, player-N or standby
  cancel                   release over nothing
  move <player> <target>   lift and drop in one step
  save                     send the board to the server
  status                   show save and connection state
  reload                   discard local edits and fetch the server board
  help                     show this help
  quit                     exit`

var errQuit = errors.New("quit")

type repl struct {
	session *draft.Session
	breaker func() client.BreakerState

	mu     sync.Mutex // guards out; saves report from another goroutine
	out    io.Writer
	lifted string
	saves  sync.WaitGroup
}

func newREPL(session *draft.Session, out io.Writer) *repl {
	return &repl{session: session, out: out}
}

// Run reads commands from in until quit, EOF or ctx is done
func (r *repl) Run(ctx context.Context, in io.Reader) error {
	r.printf("%s\n", usage)
	r.show()

	lines := bufio.NewScanner(in)
	for {
		r.printf("> ")
		if !lines.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if err := r.exec(ctx, lines.Text()); err != nil {
			if errors.Is(err, errQuit) {
				break
			}
			r.printf("error: %v\n", err)
		}
	}
	r.saves.Wait()
	return lines.Err()
}

func (r *repl) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "show", "ls":
		r.show()
	case "lift":
		if len(args) != 1 {
			return errors.New("usage: lift <player>")
		}
		r.lift(args[0])
	case "drop":
		if len(args) != 1 {
			return errors.New("usage: drop <target>")
		}
		r.drop(args[0])
	case "cancel":
		r.drop("")
	case "move", "mv":
		if len(args) != 2 {
			return errors.New("usage: move <player> <target>")
		}
		if r.lift(args[0]) {
			r.drop(args[1])
		}
	case "save":
		r.save(ctx)
	case "status":
		r.status()
	case "reload":
		if err := r.session.Reload(ctx); err != nil {
			return err
		}
		r.lifted = ""
		r.show()
	case "help", "?":
		r.printf("%s\n", usage)
	case "quit", "exit", "q":
		return errQuit
	default:
		return errors.Newf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (r *repl) lift(ref string) bool {
	if !r.session.OnDragStartRaw(ref) {
		r.printf("no player %s on the board\n", ref)
		return false
	}
	r.lifted = ref
	p, _ := r.session.ActiveDraggedPlayer()
	r.printf("lifted %s\n", p.Name)
	return true
}

func (r *repl) drop(target string) {
	if r.lifted == "" {
		r.printf("nothing lifted\n")
		return
	}
	in := r.session.OnDragEndRaw(r.lifted, target)
	r.lifted = ""

	switch in.Kind {
	case draft.IntentMove:
		r.printf("moved player %d %s -> %s\n", in.PlayerID, in.From, in.To)
		r.show()
	case draft.IntentReorder:
		r.printf("reordered player %d in %s\n", in.PlayerID, in.From)
		r.show()
	case draft.IntentRejectFull:
		r.printf("team %d is full (%d/%d)\n", in.To.TeamID, r.session.Rules().TeamCapacity, r.session.Rules().TeamCapacity)
	case draft.IntentCancel:
		r.printf("cancelled\n")
	default:
		r.printf("no change\n")
	}
}

func (r *repl) save(ctx context.Context) {
	done := r.session.RequestSaveAll(ctx)
	r.printf("saving...\n")

	r.saves.Add(1)
	go func() {
		defer r.saves.Done()
		err := <-done
		switch {
		case err == nil:
			r.printf("saved %d players\n", r.session.Roster().PlayerCount())
		case errors.Is(err, draft.ErrSaveInProgress):
			r.printf("a save is already in progress\n")
		case draft.IsRetryable(err):
			r.printf("save failed, local board kept; run save to retry (%v)\n", err)
		default:
			r.printf("save failed: %v\n", err)
		}
	}()
}

func (r *repl) status() {
	state := "idle"
	if r.session.Saving() {
		state = "saving"
	}
	r.printf("save: %s\n", state)
	if p, ok := r.session.ActiveDraggedPlayer(); ok {
		r.printf("lifted: %s\n", p.Name)
	}
	if r.breaker != nil {
		r.printf("server: %s\n", r.breaker())
	}
}

func (r *repl) show() {
	roster := r.session.Roster()
	capacity := r.session.Rules().TeamCapacity

	var b strings.Builder
	for _, t := range roster.Teams {
		fmt.Fprintf(&b, "team-%d %s (%d/%d):", t.ID, t.Name, len(t.Players), capacity)
		r.writeCards(&b, t.Players)
	}
	fmt.Fprintf(&b, "standby (%d):", len(roster.Standby))
	r.writeCards(&b, roster.Standby)
	r.printf("%s", b.String())
}

func (r *repl) writeCards(b *strings.Builder, players []models.Player) {
	if len(players) == 0 {
		b.WriteString(" -\n")
		return
	}
	for _, p := range players {
		card := fmt.Sprintf("%d:%s %s", p.ID, p.Name, p.Position)
		if r.session.IsBeingDragged(p.ID) {
			card = "[" + card + "]"
		}
		b.WriteString(" " + card)
	}
	b.WriteString("\n")
}

func (r *repl) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
