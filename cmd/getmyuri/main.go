// getmyuri is the command-line client for the getmyuri link service:
// it opens protected short links, shortens URLs and manages custom
// links.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/getmyuri/getmyuri-client/internal/authz"
	"github.com/getmyuri/getmyuri-client/internal/client"
	"github.com/getmyuri/getmyuri-client/internal/config"
	"github.com/getmyuri/getmyuri-client/internal/flow"
	"github.com/getmyuri/getmyuri-client/internal/geo"
	"github.com/getmyuri/getmyuri-client/internal/model"
	"github.com/getmyuri/getmyuri-client/internal/observability"
	"github.com/getmyuri/getmyuri-client/internal/requirement"
	"github.com/getmyuri/getmyuri-client/internal/session"
)

const usage = `Usage: getmyuri <command> [flags]

Commands:
  access <link>     open a short link, collecting credentials it requires
  shorten <url>     shorten a URL anonymously
  create            create a custom link (requires login)
  login <email>     start a local session
  logout            end the local session
  contact           send a message to the service operators

Run "getmyuri <command> --help" for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.App.Environment)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "access":
		err = runAccess(cfg, logger, args)
	case "shorten":
		err = runShorten(cfg, logger, args)
	case "create":
		err = runCreate(cfg, logger, args)
	case "login":
		err = runLogin(args)
	case "logout":
		err = runLogout()
	case "contact":
		err = runContact(cfg, logger, args)
	case "help", "--help", "-h":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runAccess drives the credential-collection flow for one link and
// opens (or prints) the destination.
func runAccess(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := pflag.NewFlagSet("access", pflag.ExitOnError)
	password := fs.String("password", "", "link passcode (prompted when required and absent)")
	lat := fs.Float64("lat", 0, "latitude to present instead of acquiring one")
	lon := fs.Float64("lon", 0, "longitude to present instead of acquiring one")
	mode := fs.String("mode", cfg.API.AccessMode, `redirect handling: "navigate" or "check"`)
	open := fs.Bool("open", false, "open the destination in the system browser")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("access needs exactly one link or alias argument")
	}

	ctx := context.Background()

	req, err := resolveRequirement(ctx, cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	if req.PriorFailure != requirement.FailureNone {
		fmt.Fprintln(os.Stderr, req.PriorFailure.Message())
	}

	machine := flow.New(req)
	acquirer := newAcquirer(cfg, logger)

	if req.PasswordRequired {
		pw := *password
		if pw == "" {
			pw, err = promptPassword()
			if err != nil {
				return err
			}
		}
		machine.SetPassword(pw)
	}

	if machine.NeedsLocation() {
		if fs.Changed("lat") && fs.Changed("lon") {
			token := machine.BeginLocation()
			machine.CompleteLocation(token, geo.Coordinate{Lat: *lat, Lon: *lon})
		} else {
			fmt.Fprintln(os.Stderr, "Acquiring your location...")
			token := machine.BeginLocation()
			coord, acqErr := acquirer.Acquire(ctx)
			if acqErr != nil {
				machine.FailLocation(token, acqErr)
				return fmt.Errorf("location: %w", acqErr)
			}
			machine.CompleteLocation(token, coord)
			fmt.Fprintf(os.Stderr, "Location acquired via %s (accuracy ~%.0fm)\n",
				coord.Source, coord.AccuracyMeters)
		}
	}

	if err := machine.BeginSubmit(); err != nil {
		return err
	}

	creds := authz.Credentials{Password: machine.Password()}
	if coord, ok := machine.Coordinate(); ok {
		creds.Coordinate = &coord
	}

	requester := authz.NewRequester(cfg.API.BaseURL, accessMode(*mode), acquirer, cfg.API.Timeout, logger)
	outcome, err := requester.Submit(ctx, machine.Requirement(), creds)
	machine.FinishSubmit(err)
	if err != nil {
		if errors.Is(err, authz.ErrRejected) {
			return errors.New(machine.LastError())
		}
		return err
	}

	if outcome.External {
		fmt.Println(outcome.BrowserURL())
		if *open {
			return openBrowser(outcome.BrowserURL())
		}
		return nil
	}
	fmt.Println(outcome.RedirectURL)
	return nil
}

// resolveRequirement turns the command argument into a Requirement.
// Access-page URLs carry the requirement encoding in their query; bare
// aliases and /r/ URLs need a probe against the server to learn the
// policy.
func resolveRequirement(ctx context.Context, cfg *config.Config, arg string) (requirement.Requirement, error) {
	if u, err := url.Parse(arg); err == nil && u.IsAbs() {
		if u.Query().Get("aliasPath") != "" {
			return requirement.Parse(u.Query())
		}
		if alias, ok := strings.CutPrefix(strings.TrimPrefix(u.Path, "/"), "r/"); ok {
			return discoverRequirement(ctx, cfg, strings.Trim(alias, "/"))
		}
		return requirement.Requirement{}, fmt.Errorf("%s does not look like a short link", arg)
	}
	return discoverRequirement(ctx, cfg, strings.Trim(arg, "/"))
}

// discoverRequirement probes the link once without credentials and
// reads the policy off the access-page bounce. Links with no policy
// resolve on the spot, which the subsequent submit simply repeats.
func discoverRequirement(ctx context.Context, cfg *config.Config, alias string) (requirement.Requirement, error) {
	if alias == "" {
		return requirement.Requirement{}, requirement.ErrMissingAlias
	}

	httpClient := &http.Client{
		Timeout: cfg.API.Timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	target := strings.TrimRight(cfg.API.BaseURL, "/") + "/r/" + alias
	reqHTTP, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return requirement.Requirement{}, err
	}
	resp, err := httpClient.Do(reqHTTP)
	if err != nil {
		return requirement.Requirement{}, fmt.Errorf("probe link: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return requirement.Requirement{}, fmt.Errorf("short link %q was not found", alias)
	case resp.StatusCode == http.StatusGone:
		return requirement.Requirement{}, fmt.Errorf("short link %q has expired", alias)
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		loc, err := url.Parse(resp.Header.Get("Location"))
		if err == nil && loc.Query().Get("aliasPath") != "" {
			return requirement.Parse(loc.Query())
		}
	}
	// No bounce: the link is open.
	return requirement.Requirement{AliasPath: alias}, nil
}

func newAcquirer(cfg *config.Config, logger *slog.Logger) *geo.Acquirer {
	provider := geo.NewCommandProvider(cfg.Geo.LocatorCommand)
	ip := geo.NewIPLocator(cfg.Geo.IPLookupURL, cfg.Geo.IPLookupTimeout)
	geoCfg := geo.Config{
		HighAccuracyTimeout: cfg.Geo.HighAccuracyTimeout,
		LowAccuracyTimeout:  cfg.Geo.LowAccuracyTimeout,
	}
	return geo.NewAcquirer(provider, ip, geoCfg, logger)
}

func accessMode(mode string) authz.Mode {
	if mode == "navigate" {
		return authz.ModeNavigate
	}
	return authz.ModeProgrammatic
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func openBrowser(target string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", target).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	default:
		return exec.Command("xdg-open", target).Start()
	}
}

func runShorten(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := pflag.NewFlagSet("shorten", pflag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("shorten needs exactly one URL argument")
	}

	api := client.New(cfg.API.BaseURL, cfg.API.Timeout, logger)
	shortURL, err := api.Shorten(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Println(shortURL)
	return nil
}

func runCreate(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := pflag.NewFlagSet("create", pflag.ExitOnError)
	dest := fs.String("dest", "", "destination URL (required)")
	aliases := fs.StringSlice("alias", nil, "alias segment, repeatable for nested paths (required)")
	password := fs.String("password", "", "passcode visitors must present")
	expires := fs.String("expires", "", "expiry as RFC3339 time or duration from now (e.g. 72h)")
	fenceLat := fs.Float64("geo-lat", 0, "geofence center latitude")
	fenceLon := fs.Float64("geo-lon", 0, "geofence center longitude")
	fenceRadius := fs.Float64("geo-radius", 0, "geofence radius")
	fenceUnit := fs.String("geo-unit", "miles", `geofence radius unit: "miles" or "feet"`)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dest == "" || len(*aliases) == 0 {
		return errors.New("create needs --dest and at least one --alias")
	}

	sessions, err := session.NewStore()
	if err != nil {
		return err
	}
	if !sessions.IsAuthenticated() {
		return errors.New("custom links require login; run: getmyuri login <email>")
	}

	spec := client.CreateLinkSpec{
		Destination: *dest,
		Aliases:     *aliases,
		Password:    *password,
	}
	if *expires != "" {
		expiresAt, err := parseExpiry(*expires)
		if err != nil {
			return err
		}
		spec.ExpiresAt = &expiresAt
	}
	if fs.Changed("geo-lat") || fs.Changed("geo-lon") || fs.Changed("geo-radius") {
		if !(fs.Changed("geo-lat") && fs.Changed("geo-lon") && fs.Changed("geo-radius")) {
			return errors.New("a geofence needs --geo-lat, --geo-lon and --geo-radius together")
		}
		spec.Geofence = &client.GeofenceSpec{
			Lat:    *fenceLat,
			Lon:    *fenceLon,
			Radius: *fenceRadius,
			Unit:   *fenceUnit,
		}
	}

	api := client.New(cfg.API.BaseURL, cfg.API.Timeout, logger)
	resp, err := api.CreateLink(context.Background(), spec)
	if err != nil {
		return err
	}
	fmt.Println(resp.ShortURL)
	return nil
}

func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return time.Now().Add(d), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse expiry %q: use RFC3339 or a duration like 72h", raw)
}

func runLogin(args []string) error {
	if len(args) != 1 {
		return errors.New("login needs exactly one email argument")
	}
	email := args[0]
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%q does not look like an email address", email)
	}

	sessions, err := session.NewStore()
	if err != nil {
		return err
	}
	if err := sessions.Login(email); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", email)
	return nil
}

func runLogout() error {
	sessions, err := session.NewStore()
	if err != nil {
		return err
	}
	if err := sessions.Logout(); err != nil {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

func runContact(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := pflag.NewFlagSet("contact", pflag.ExitOnError)
	first := fs.String("first-name", "", "your first name")
	last := fs.String("last-name", "", "your last name")
	email := fs.String("email", "", "reply-to address")
	message := fs.String("message", "", "message body, at least 10 characters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	api := client.New(cfg.API.BaseURL, cfg.API.Timeout, logger)
	err := api.Contact(context.Background(), model.ContactRequest{
		FirstName: *first,
		LastName:  *last,
		Email:     *email,
		Message:   *message,
	})
	if err != nil {
		return err
	}
	fmt.Println("Message sent")
	return nil
}
