// Package cli is the interactive front end: a small REPL that drives the
// search and home controllers the way the app screens would.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/glasscast/glasscast/internal/api/auth"
	"github.com/glasscast/glasscast/internal/api/home"
	"github.com/glasscast/glasscast/internal/api/search"
	"github.com/glasscast/glasscast/internal/types"
)

type App struct {
	logger  *slog.Logger
	authSvc auth.Service
	session *auth.SessionStore
	search  *search.Controller
	home    *home.Controller

	in  *bufio.Scanner
	out io.Writer

	// Geocode results from the last search, indexed for the add command.
	lastResults []types.GeocodeCity
}

func NewApp(authSvc auth.Service, session *auth.SessionStore, searchCtrl *search.Controller, homeCtrl *home.Controller, in io.Reader, out io.Writer, logger *slog.Logger) *App {
	return &App{
		logger:  logger,
		authSvc: authSvc,
		session: session,
		search:  searchCtrl,
		home:    homeCtrl,
		in:      bufio.NewScanner(in),
		out:     out,
	}
}

// Run reads commands until EOF, "quit", or context cancellation.
func (a *App) Run(ctx context.Context) error {
	a.waitForSessionRestore(ctx)

	if user, ok := a.session.CurrentUser(); ok {
		fmt.Fprintf(a.out, "Signed in as %s\n", user.Email)
		a.home.Load(ctx)
		a.printHome()
	} else {
		fmt.Fprintln(a.out, "Not signed in. Use: login <email> <password> or signup <email> <password>")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		fmt.Fprint(a.out, "> ")
		if !a.in.Scan() {
			return a.in.Err()
		}
		line := strings.TrimSpace(a.in.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		a.dispatch(ctx, line)
	}
}

func (a *App) waitForSessionRestore(ctx context.Context) {
	for a.session.IsLoading() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func (a *App) dispatch(ctx context.Context, line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		a.printHelp()
	case "login":
		a.login(ctx, args)
	case "signup":
		a.signup(ctx, args)
	case "logout":
		a.logout(ctx)
	case "search":
		a.runSearch(ctx, strings.TrimSpace(strings.TrimPrefix(line, "search")))
	case "add":
		a.addFavorite(ctx, args)
	case "cities":
		a.home.Load(ctx)
		a.printHome()
	case "city":
		a.selectCity(ctx, args)
	case "remove":
		a.removeFavorite(ctx, args)
	case "weather", "refresh":
		a.home.Refresh(ctx)
		a.printHome()
	case "day":
		a.selectDay(args)
	case "unit":
		a.setUnit(ctx, args)
	default:
		fmt.Fprintf(a.out, "Unknown command %q, try help\n", cmd)
	}
}

func (a *App) printHelp() {
	fmt.Fprint(a.out, `Commands:
  login <email> <password>   sign in
  signup <email> <password>  create an account
  logout                     sign out
  search <text>              search cities (debounced, like typing)
  add <n>                    favorite the n-th search result
  cities                     list favorites and load the first one
  city <n>                   select the n-th favorite
  remove <n>                 remove the n-th favorite
  weather                    refresh the selected city
  day <n>                    expand/collapse the n-th forecast day
  unit c|f                   switch temperature unit
  quit                       exit
`)
}

func (a *App) login(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: login <email> <password>")
		return
	}
	session, err := a.authSvc.SignIn(ctx, args[0], args[1])
	if err != nil {
		fmt.Fprintln(a.out, auth.UserMessage(err))
		return
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", session.User.Email)
	a.home.Load(ctx)
	a.printHome()
}

func (a *App) signup(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "Usage: signup <email> <password>")
		return
	}
	outcome, session, err := a.authSvc.SignUp(ctx, args[0], args[1])
	if err != nil {
		fmt.Fprintln(a.out, auth.UserMessage(err))
		return
	}
	switch outcome {
	case auth.SignUpSignedIn:
		fmt.Fprintf(a.out, "Account created, signed in as %s\n", session.User.Email)
		a.home.Load(ctx)
		a.printHome()
	case auth.SignUpExistingAccount:
		fmt.Fprintln(a.out, "This email is already registered. Try logging in instead.")
	default:
		fmt.Fprintln(a.out, "Check your inbox to confirm your email, then log in.")
	}
}

func (a *App) logout(ctx context.Context) {
	if err := a.authSvc.SignOut(ctx); err != nil {
		fmt.Fprintln(a.out, auth.UserMessage(err))
		return
	}
	fmt.Fprintln(a.out, "Signed out")
}

// runSearch mimics typing the query in one go and waiting for the debounce to
// elapse, then prints whatever the controller settled on.
func (a *App) runSearch(ctx context.Context, query string) {
	if query == "" {
		fmt.Fprintln(a.out, "Usage: search <text>")
		return
	}

	a.search.LoadFavorites(ctx)
	before := a.search.Snapshot().CompletedSearches
	a.search.UpdateQuery(query)

	deadline := time.Now().Add(5 * time.Second)
	for a.search.Snapshot().CompletedSearches == before && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}

	snap := a.search.Snapshot()
	if snap.ErrorMessage != "" {
		fmt.Fprintln(a.out, snap.ErrorMessage)
		return
	}
	a.lastResults = snap.Results
	if len(snap.Results) == 0 {
		fmt.Fprintln(a.out, "No cities found")
		return
	}
	for i, city := range snap.Results {
		marker := " "
		if a.search.IsFavorite(city) {
			marker = "*"
		}
		fmt.Fprintf(a.out, "%2d %s %s (%.4f, %.4f)\n", i+1, marker, city.DisplayName(), city.Lat, city.Lon)
	}
}

func (a *App) addFavorite(ctx context.Context, args []string) {
	idx, ok := a.parseIndex(args, len(a.lastResults), "add")
	if !ok {
		return
	}
	city := a.lastResults[idx]
	a.search.AddFavorite(ctx, city)

	snap := a.search.Snapshot()
	if snap.ErrorMessage != "" {
		fmt.Fprintln(a.out, snap.ErrorMessage)
		return
	}
	fmt.Fprintf(a.out, "Added %s\n", city.DisplayName())
}

func (a *App) selectCity(ctx context.Context, args []string) {
	favs := a.home.Snapshot().Favorites
	idx, ok := a.parseIndex(args, len(favs), "city")
	if !ok {
		return
	}
	a.home.SelectCity(ctx, favs[idx])
	a.printHome()
}

func (a *App) removeFavorite(ctx context.Context, args []string) {
	favs := a.home.Snapshot().Favorites
	idx, ok := a.parseIndex(args, len(favs), "remove")
	if !ok {
		return
	}
	a.home.RemoveFavorite(ctx, favs[idx].ID)
	fmt.Fprintf(a.out, "Removed %s\n", favs[idx].CityName)
	a.printHome()
}

func (a *App) selectDay(args []string) {
	days := a.home.Snapshot().Forecast
	idx, ok := a.parseIndex(args, len(days), "day")
	if !ok {
		return
	}
	a.home.SelectDay(days[idx])
	a.printHome()
}

func (a *App) setUnit(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: unit c|f")
		return
	}
	var unit types.TemperatureUnit
	switch strings.ToLower(args[0]) {
	case "c", "celsius":
		unit = types.UnitCelsius
	case "f", "fahrenheit":
		unit = types.UnitFahrenheit
	default:
		fmt.Fprintln(a.out, "Usage: unit c|f")
		return
	}
	a.home.SetUnit(ctx, unit)
	a.printHome()
}

func (a *App) parseIndex(args []string, size int, usage string) (int, bool) {
	if len(args) != 1 {
		fmt.Fprintf(a.out, "Usage: %s <n>\n", usage)
		return 0, false
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > size {
		fmt.Fprintf(a.out, "Pick a number between 1 and %d\n", size)
		return 0, false
	}
	return n - 1, true
}

func (a *App) printHome() {
	snap := a.home.Snapshot()

	if snap.ErrorMessage != "" {
		fmt.Fprintln(a.out, snap.ErrorMessage)
	}
	if len(snap.Favorites) == 0 {
		fmt.Fprintln(a.out, "No favorite cities yet. Use search to find one.")
		return
	}

	for i, f := range snap.Favorites {
		marker := " "
		if snap.Selected != nil && snap.Selected.ID == f.ID {
			marker = ">"
		}
		fmt.Fprintf(a.out, "%2d %s %s\n", i+1, marker, f.CityName)
	}

	sym := snap.Unit.Symbol()
	if snap.Current != nil {
		c := snap.Current
		fmt.Fprintf(a.out, "\n%s  %.1f%s (H %.1f%s / L %.1f%s)\n", c.Condition, c.Temp, sym, c.High, sym, c.Low, sym)
		fmt.Fprintf(a.out, "Humidity %d%%  Wind %.1f", c.Humidity, c.WindSpeed)
		if c.UVIndex != nil {
			fmt.Fprintf(a.out, "  UV %.1f", *c.UVIndex)
		}
		fmt.Fprintln(a.out)
	}

	for i, d := range snap.Forecast {
		expanded := " "
		if snap.SelectedDay != nil && snap.SelectedDay.Date.Equal(d.Date) {
			expanded = "v"
		}
		fmt.Fprintf(a.out, "%2d %s %s  %s  %.1f%s / %.1f%s\n",
			i+1, expanded, d.Date.Format("Mon Jan 2"), d.Condition, d.Min, sym, d.Max, sym)
	}
}
