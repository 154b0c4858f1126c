// kitchenctl is the terminal client for a kitchenops server.
//
// Usage:
//
//	kitchenctl [-server URL] [-verbose] [-quiet] <command> [args]
//
// Commands:
//
//	login <email>        sign in and remember the token
//	logout               revoke the token and forget it
//	whoami               show the signed-in profile
//	recipes [search]     list recipes
//	follow <recipe-id>   watch a live session without controlling it
//	cook <recipe-id>     start (or join) a session and drive it
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/joho/godotenv"

	"github.com/hammamikhairi/kitchenops/internal/auth"
	"github.com/hammamikhairi/kitchenops/internal/client"
	"github.com/hammamikhairi/kitchenops/internal/clock"
	"github.com/hammamikhairi/kitchenops/internal/command"
	"github.com/hammamikhairi/kitchenops/internal/display"
	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/notify"
	"github.com/hammamikhairi/kitchenops/internal/relay"
	"github.com/hammamikhairi/kitchenops/internal/voice"
)

const envServer = "KITCHENOPS_SERVER"

func main() {
	_ = godotenv.Load()

	server := flag.String("server", "", "kitchenops server URL (default $"+envServer+" or the saved session's server)")
	sessionFile := flag.String("session", auth.DefaultSessionPath(), "file the login token is kept in")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".kitchenctl-logs/kitchenctl.log", "file to write logs to (use \"stderr\" to log to console)")
	useVoice := flag.Bool("voice", false, "enable voice input via local Whisper STT (cook only)")
	whisperBin := flag.String("whisper-bin", "whisper-cli", "path to the whisper-cpp CLI binary")
	whisperModel := flag.String("whisper-model", "bin/ggml-small.bin", "path to the Whisper GGML model file")
	recordSecs := flag.Int("record-secs", 2, "seconds per voice recording chunk")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Logs go to a file by default so the follow view stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		if dir := filepath.Dir(*logFile); dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)
	log := logger.New(logLevel, logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cliApp{
		sessionPath: *sessionFile,
		server:      *server,
		log:         log,
	}
	if *useVoice {
		app.voice = &voiceConfig{
			bin:   *whisperBin,
			model: *whisperModel,
			chunk: time.Duration(*recordSecs) * time.Second,
		}
	}

	if err := app.dispatch(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		if client.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "error: not signed in or token expired; run `kitchenctl login <email>`")
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: kitchenctl [flags] <command> [args]

commands:
  login <email>        sign in and remember the token
  logout               revoke the token and forget it
  whoami               show the signed-in profile
  recipes [search]     list recipes
  follow <recipe-id>   watch a live session
  cook <recipe-id>     start or join a session and drive it

flags:
`)
	flag.PrintDefaults()
}

type voiceConfig struct {
	bin   string
	model string
	chunk time.Duration
}

type cliApp struct {
	sessionPath string
	server      string // from -server, may be empty
	voice       *voiceConfig
	log         *logger.Logger
}

func (a *cliApp) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		if len(args) != 1 {
			return errors.New("usage: kitchenctl login <email>")
		}
		return a.login(ctx, args[0])
	case "logout":
		return a.logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "recipes":
		return a.recipes(ctx, strings.Join(args, " "))
	case "follow", "cook":
		if len(args) != 1 {
			return fmt.Errorf("usage: kitchenctl %s <recipe-id>", cmd)
		}
		return a.view(ctx, args[0], cmd == "cook")
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// serverURL picks the server from the flag, the environment, the saved
// session, then localhost.
func (a *cliApp) serverURL(saved auth.Session) string {
	switch {
	case a.server != "":
		return a.server
	case os.Getenv(envServer) != "":
		return os.Getenv(envServer)
	case saved.Server != "":
		return saved.Server
	default:
		return "http://localhost:8080"
	}
}

// connect returns a client carrying the saved token.
func (a *cliApp) connect() (*client.Client, error) {
	saved, ok, err := auth.LoadSession(a.sessionPath)
	if err != nil {
		return nil, err
	}
	if !ok || saved.Expired(time.Now()) {
		return nil, fmt.Errorf("no saved login: %w", domain.ErrUnauthorized)
	}
	return client.New(a.serverURL(saved), a.log, client.WithToken(saved.Token)), nil
}

func (a *cliApp) login(ctx context.Context, email string) error {
	password, err := readPassword()
	if err != nil {
		return err
	}

	saved, _, _ := auth.LoadSession(a.sessionPath)
	server := a.serverURL(saved)
	c := client.New(server, a.log)

	res, err := c.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	s := auth.Session{
		Server:    server,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
	}
	if res.Profile != nil {
		s.ProfileID = res.Profile.ID
		s.Email = res.Profile.Email
		s.Role = string(res.Profile.Role)
	}
	if err := auth.SaveSession(a.sessionPath, s); err != nil {
		return err
	}
	fmt.Printf("Signed in as %s (%s). Token saved to %s\n", s.Email, s.Role, a.sessionPath)
	return nil
}

// readPassword prompts on stderr and reads without echo when stdin is a
// terminal, otherwise it reads one line.
func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	fd := os.Stdin.Fd()
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *cliApp) logout(ctx context.Context) error {
	c, err := a.connect()
	if err == nil {
		// The server may already have forgotten the token.
		if err := c.Logout(ctx); err != nil {
			a.log.Warn("logout: %v", err)
		}
	}
	if err := auth.ClearSession(a.sessionPath); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}

func (a *cliApp) whoami(ctx context.Context) error {
	c, err := a.connect()
	if err != nil {
		return err
	}
	p, err := c.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\nrole: %s\n", p.Name, p.Email, p.Role)
	if p.KitchenID != "" {
		fmt.Printf("kitchen: %s\n", p.KitchenID)
	}
	return nil
}

func (a *cliApp) recipes(ctx context.Context, search string) error {
	c, err := a.connect()
	if err != nil {
		return err
	}
	list, err := c.Recipes(ctx, search)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No recipes.")
		return nil
	}
	for _, r := range list {
		fmt.Printf("%-36s  %-28s  %d steps\n", r.ID, r.Name, r.StepCount)
	}
	return nil
}

// view opens the live view of a recipe's session. When drive is set the
// session is started if needed and typed or spoken commands control it.
func (a *cliApp) view(ctx context.Context, recipeID string, drive bool) error {
	c, err := a.connect()
	if err != nil {
		return err
	}
	recipe, err := c.Recipe(ctx, recipeID)
	if err != nil {
		return err
	}
	if drive {
		// A conflict means someone is already cooking it; join instead.
		if _, err := c.StartSession(ctx, recipeID); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return fmt.Errorf("starting session: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mirror, err := clock.New(recipe.Steps)
	if err != nil {
		return fmt.Errorf("recipe %s: %w", recipeID, err)
	}

	ui := display.NewUI(recipe)
	v := &viewer{
		client:   c,
		recipe:   recipe,
		mirror:   mirror,
		ui:       ui,
		parser:   command.NewKeywordParser(a.log),
		notifier: notify.NewLogNotifier(a.log, ui.Printf),
		drive:    drive,
		log:      a.log,
	}

	if drive && a.voice != nil {
		if _, err := os.Stat(a.voice.model); err != nil {
			return fmt.Errorf("whisper model not found at %s", a.voice.model)
		}
		v.listener = voice.New(a.voice.bin, a.voice.model, a.log,
			voice.WithChunkDuration(a.voice.chunk),
		)
		go v.listener.Run(ctx)
		a.log.Info("voice input enabled (bin=%s, model=%s, chunk=%s)", a.voice.bin, a.voice.model, a.voice.chunk)
	}

	fmt.Println(display.RenderBanner())
	if drive {
		fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to leave."))
	} else {
		fmt.Println(display.BannerStyle.Render("  Following. Type 'quit' to leave."))
	}
	fmt.Println()

	errCh := make(chan error, 1)
	go func() {
		ui.WaitReady()
		errCh <- v.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal until quit.
	if err := ui.Run(); err != nil {
		a.log.Error("display: %v", err)
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		return nil
	}
}

// viewer runs one follow or cook view.
type viewer struct {
	client   *client.Client
	recipe   *domain.Recipe
	ui       *display.UI
	parser   domain.IntentParser
	notifier domain.Notifier
	listener *voice.Listener // nil when voice input is disabled
	drive    bool
	log      *logger.Logger

	// mirror holds the last relayed state. Only the run goroutine
	// touches it.
	mirror *clock.Clock
}

// latestState holds at most one pending state. A newer state replaces
// the pending one. It assumes a single sender.
type latestState chan domain.SessionState

func newLatestState() latestState { return make(latestState, 1) }

func (l latestState) put(s domain.SessionState) {
	select {
	case <-l:
	default:
	}
	l <- s
}

func (v *viewer) run(ctx context.Context) error {
	states := newLatestState()
	followErr := make(chan error, 1)
	go func() {
		followErr <- v.client.Follow(ctx, v.recipe.ID, func(msg relay.Message) {
			states.put(relay.Apply(domain.SessionState{}, msg))
		})
	}()

	var voiceCh <-chan string
	if v.listener != nil {
		voiceCh = v.listener.C()
	}
	inputCh := v.ui.InputChan()

	for {
		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-followErr:
			if err != nil {
				v.ui.PrintUrgent(fmt.Sprintf("lost connection: %v", err))
			}
			return err
		case s := <-states:
			v.show(ctx, s)
			continue
		case line, ok := <-inputCh:
			if !ok {
				return nil
			}
			input = line
		case line := <-voiceCh:
			v.ui.PrintVoice(line)
			input = line
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		intent := v.parser.Parse(input)
		v.log.Debug("intent: %s (payload=%q)", intent.Type, intent.Payload)
		if quit := v.handleIntent(ctx, intent); quit {
			return nil
		}
	}
}

// show mirrors a new state, renders it, and announces step and phase
// changes. States that do not fit the recipe are dropped.
func (v *viewer) show(ctx context.Context, s domain.SessionState) {
	prev, first := v.mirror.State(), !v.mirror.Started()
	if err := v.mirror.Restore(s); err != nil {
		v.log.Warn("follow: ignoring state for %s: %v", v.recipe.ID, err)
		return
	}
	s = v.mirror.State()
	v.ui.SetState(s)

	if s.Phase == domain.PhaseDone {
		if first || prev.Phase != domain.PhaseDone {
			v.notifier.Notify(ctx, "All steps done. Enjoy!")
		}
		return
	}
	if first || s.StepIndex != prev.StepIndex {
		v.printStep(s.StepIndex)
	}
	if s.Phase == domain.PhaseAction && (first || prev.Phase != domain.PhaseAction || s.StepIndex != prev.StepIndex) {
		v.notifier.NotifyUrgent(ctx, fmt.Sprintf("Step %d: do it now.", s.StepIndex+1))
	}
}

func (v *viewer) printStep(index int) {
	if index < 0 || index >= len(v.recipe.Steps) {
		return
	}
	step := v.recipe.Steps[index]
	v.ui.PrintStep(fmt.Sprintf("Step %d/%d", index+1, len(v.recipe.Steps)))
	v.ui.PrintInstruction(step.Instruction)
	if step.DelaySec > 0 {
		v.ui.PrintHint(fmt.Sprintf("starts in %ds, then %ds to do it", step.DelaySec, step.DurationSec))
	} else {
		v.ui.PrintHint(fmt.Sprintf("%ds to do it", step.DurationSec))
	}
}

// handleIntent acts on one command and reports whether the view should close.
func (v *viewer) handleIntent(ctx context.Context, intent domain.Intent) bool {
	switch intent.Type {
	case domain.IntentQuit:
		return true
	case domain.IntentHelp:
		for _, line := range strings.Split(command.Help(), "\n") {
			v.ui.PrintHint(line)
		}
	case domain.IntentStatus:
		v.status(ctx)
	case domain.IntentDone:
		if !v.drive {
			v.ui.PrintHint("Following only. Use `kitchenctl cook` to drive the session.")
			return false
		}
		// The new state also arrives over the socket; showing it here
		// keeps the view current if the socket lags.
		s, err := v.client.MarkDone(ctx, v.recipe.ID)
		if err != nil {
			v.ui.PrintUrgent(fmt.Sprintf("could not finish step: %v", err))
			return false
		}
		v.show(ctx, s)
	case domain.IntentStop:
		if !v.drive {
			v.ui.PrintHint("Following only. Use `kitchenctl cook` to drive the session.")
			return false
		}
		if err := v.client.StopSession(ctx, v.recipe.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			v.ui.PrintUrgent(fmt.Sprintf("could not stop session: %v", err))
			return false
		}
		v.notifier.Notify(ctx, "Session stopped.")
		return true
	default:
		v.ui.PrintHint(fmt.Sprintf("Didn't catch %q. Type 'help' for commands.", intent.Payload))
	}
	return false
}

func (v *viewer) status(ctx context.Context) {
	s, err := v.client.Session(ctx, v.recipe.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			v.ui.PrintHint("No session is running for this recipe.")
			return
		}
		v.ui.PrintUrgent(fmt.Sprintf("status: %v", err))
		return
	}
	if s.State.Phase == domain.PhaseDone {
		v.ui.PrintHint(fmt.Sprintf("%s: all %d steps done", s.RecipeName, s.StepCount))
		return
	}
	v.ui.PrintHint(fmt.Sprintf("%s: step %d/%d, %s, %ds left (started %s)",
		s.RecipeName, s.State.StepIndex+1, s.StepCount,
		strings.ToLower(display.PhaseLabel(s.State.Phase)), s.State.Remaining,
		s.StartedAt.Local().Format("15:04")))
}
