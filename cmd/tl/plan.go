package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"tripline/internal/domain"
	"tripline/internal/engine"
	"tripline/internal/swipe"
)

// planner drives a workflow from a line-oriented terminal. Every prompt
// accepts q to quit; swipe and selection prompts also accept b to go back.
type planner struct {
	wf  *engine.Workflow
	in  *bufio.Scanner
	out io.Writer
}

var errQuit = errors.New("quit")

func (p *planner) run(ctx context.Context, userID string) error {
	if err := p.wf.Start(ctx, userID); err != nil {
		p.warn(err)
	}
	for {
		var err error
		switch p.wf.Stage() {
		case domain.StagePreferences:
			err = p.preferences(ctx)
		case domain.StageWishes:
			err = p.wishes(ctx)
		case domain.StageDestination:
			err = swipeStep(p, "destination", p.wf.Snapshot().Destinations, p.wf.ChooseDestination)
		case domain.StageAccommodation:
			err = swipeStep(p, "stay", p.wf.Snapshot().Accommodations, p.wf.ChooseAccommodation)
		case domain.StageDining:
			err = selectStep(p, "restaurants", p.wf.DiningOptions(), p.wf.SelectRestaurants)
		case domain.StageExperiences:
			err = selectStep(p, "experiences", p.wf.ExperienceOptions(), p.wf.SelectExperiences)
		case domain.StageItinerary:
			err = p.itinerary(ctx)
		case domain.StageDone:
			err = p.done()
		default:
			return fmt.Errorf("unexpected stage %s", p.wf.Stage())
		}
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ask prints prompt and returns the trimmed reply. End of input quits.
func (p *planner) ask(prompt string) (string, error) {
	fmt.Fprintf(p.out, "%s> ", prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		fmt.Fprintln(p.out)
		return "", errQuit
	}
	line := strings.TrimSpace(p.in.Text())
	if line == "q" {
		return "", errQuit
	}
	return line, nil
}

// warn reports a failed step. Persistence failures leave the workflow
// advanced, so they are shown as warnings rather than stopping the session.
func (p *planner) warn(err error) {
	var perr *domain.PersistenceError
	if errors.As(err, &perr) {
		fmt.Fprintf(p.out, "warning: could not %s; continuing without saving\n", perr.Op)
		return
	}
	fmt.Fprintf(p.out, "! %v\n", err)
}

func (p *planner) back() {
	if err := p.wf.Back(); err != nil {
		p.warn(err)
	}
}

func (p *planner) preferences(ctx context.Context) error {
	prefs := p.wf.Preferences()
	fmt.Fprintln(p.out, "Tell us how you like to travel. Leave blank to keep the current answer.")
	budget, err := p.ask(fmt.Sprintf("budget range [%s]", prefs.BudgetRange))
	if err != nil {
		return err
	}
	if budget != "" {
		prefs.BudgetRange = budget
	}
	for {
		acts, err := p.ask(fmt.Sprintf("activities, comma separated (%s) [%s]", activityList(), joinTags(prefs.Activities)))
		if err != nil {
			return err
		}
		if acts == "" {
			break
		}
		tags, err := parseActivities(strings.Split(acts, ","))
		if err != nil {
			p.warn(err)
			continue
		}
		prefs.Activities = tags
		break
	}
	diet, err := p.ask(fmt.Sprintf("dietary restrictions [%s]", strings.Join(prefs.DietaryRestrictions, ", ")))
	if err != nil {
		return err
	}
	if diet != "" {
		prefs.DietaryRestrictions = splitList(diet)
	}
	if err := p.wf.SavePreferences(ctx, prefs); err != nil {
		p.warn(err)
	}
	return nil
}

func (p *planner) wishes(ctx context.Context) error {
	var w domain.Wishes
	for w.DestinationInput == "" {
		where, err := p.ask("where would you like to go?")
		if err != nil {
			return err
		}
		w.DestinationInput = where
	}
	duration, err := p.ask("how long? (optional)")
	if err != nil {
		return err
	}
	w.TripDuration = duration
	extra, err := p.ask("anything else we should know? (optional)")
	if err != nil {
		return err
	}
	w.AdditionalWishes = extra
	fmt.Fprintln(p.out, "Finding destinations...")
	if err := p.wf.SubmitWishes(ctx, w); err != nil {
		p.warn(err)
	}
	return nil
}

func swipeStep[T domain.Candidate](p *planner, noun string, view *swipe.View[T], choose func(string) error) error {
	if view == nil {
		return fmt.Errorf("no %s swipe session", noun)
	}
	if view.Complete {
		if len(view.Liked) == 0 {
			fmt.Fprintf(p.out, "You passed on every %s. Let's look again.\n", noun)
			if err := p.wf.ResetSwipe(); err != nil {
				p.warn(err)
			}
			return nil
		}
		fmt.Fprintf(p.out, "Pick a %s:\n", noun)
		for i, c := range view.Liked {
			fmt.Fprintf(p.out, "  %d. %s\n", i+1, describe(c))
		}
		reply, err := p.ask("number or id, r to swipe again, b to go back")
		if err != nil {
			return err
		}
		switch reply {
		case "r":
			if err := p.wf.ResetSwipe(); err != nil {
				p.warn(err)
			}
		case "b":
			p.back()
		default:
			if err := choose(resolveID(view.Liked, reply)); err != nil {
				p.warn(err)
			}
		}
		return nil
	}
	fmt.Fprintf(p.out, "[%d/%d] %s\n", view.Position+1, view.Total, describe(*view.Current))
	if d := (*view.Current).Info().Description; d != "" {
		fmt.Fprintf(p.out, "    %s\n", d)
	}
	reply, err := p.ask("l like, p pass, b back")
	if err != nil {
		return err
	}
	switch reply {
	case "l", "like", "y":
		err = p.wf.Like()
	case "p", "pass", "n":
		err = p.wf.Pass()
	case "b":
		p.back()
	default:
		fmt.Fprintf(p.out, "unknown reply %q\n", reply)
	}
	if err != nil {
		p.warn(err)
	}
	return nil
}

func selectStep[T domain.Candidate](p *planner, noun string, options []T, choose func([]string) error) error {
	fmt.Fprintf(p.out, "Choose %s:\n", noun)
	for i, c := range options {
		fmt.Fprintf(p.out, "  %d. %s\n", i+1, describe(c))
	}
	reply, err := p.ask("numbers or ids separated by spaces, blank for none, f <picks> to finish now, b back")
	if err != nil {
		return err
	}
	if reply == "b" {
		p.back()
		return nil
	}
	fields := strings.Fields(reply)
	finish := len(fields) > 0 && fields[0] == "f"
	if finish {
		fields = fields[1:]
	}
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, resolveID(options, f))
	}
	if finish {
		err = p.wf.FinishEarly(ids)
	} else {
		err = choose(ids)
	}
	if err != nil {
		p.warn(err)
	}
	return nil
}

func (p *planner) itinerary(ctx context.Context) error {
	plan := p.wf.Plan()
	plan.Budget = ptr(p.wf.EstimateBudget())
	printPlan(p.out, plan)
	reply, err := p.ask("s to finalize, b back, r start over")
	if err != nil {
		return err
	}
	switch reply {
	case "s":
		if err := p.wf.Finalize(ctx); err != nil {
			var perr *domain.PersistenceError
			if !errors.As(err, &perr) {
				p.warn(err)
				return nil
			}
			return p.retrySave(ctx, err)
		}
	case "b":
		p.back()
	case "r":
		if err := p.wf.Restart(); err != nil {
			p.warn(err)
		}
	}
	return nil
}

func (p *planner) retrySave(ctx context.Context, err error) error {
	for err != nil {
		fmt.Fprintf(p.out, "Your plan is ready but could not be saved: %v\n", err)
		reply, aerr := p.ask("retry? y/n")
		if aerr != nil {
			return aerr
		}
		if reply != "y" {
			return nil
		}
		err = p.wf.RetrySave(ctx)
	}
	return nil
}

func (p *planner) done() error {
	plan := p.wf.Plan()
	switch {
	case plan.Saved:
		fmt.Fprintf(p.out, "%s is saved as %s.\n", plan.Name, plan.ID)
	case p.wf.UserID() == "":
		fmt.Fprintf(p.out, "%s is ready. Sign in with 'tl user login' to keep your plans.\n", plan.Name)
	default:
		fmt.Fprintf(p.out, "%s is ready but was not saved.\n", plan.Name)
	}
	reply, err := p.ask("r to plan another trip, q to quit")
	if err != nil {
		return err
	}
	if reply == "r" {
		if err := p.wf.Restart(); err != nil {
			p.warn(err)
		}
		return nil
	}
	return errQuit
}

func printPlan(out io.Writer, plan domain.TripPlan) {
	if plan.Name != "" {
		fmt.Fprintf(out, "== %s ==\n", plan.Name)
	}
	if plan.Accommodation != nil {
		fmt.Fprintf(out, "Staying at %s\n", plan.Accommodation.Name)
	}
	for _, day := range plan.Itinerary {
		fmt.Fprintln(out, day.Label)
		for _, slot := range day.Slots {
			fmt.Fprintf(out, "  %-8s %s\n", slot.Time, strings.Join(slot.Activities, ", "))
		}
	}
	if plan.Budget == nil {
		return
	}
	b := plan.Budget
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Budget", "Estimate"})
	tw.AppendRows([]table.Row{
		{fmt.Sprintf("Accommodation (%d nights)", b.Nights), money(b.Accommodation)},
		{"Dining", money(b.Dining)},
		{"Experiences", money(b.Experiences)},
		{"Local transport", money(b.LocalTransport)},
	})
	tw.AppendFooter(table.Row{"Total", money(b.Total)})
	tw.Render()
}

func describe(c domain.Candidate) string {
	l := c.Info()
	where := strings.Trim(l.City+", "+l.Country, ", ")
	s := l.Name
	if where != "" {
		s += " (" + where + ")"
	}
	if l.Price > 0 {
		s += " " + money(l.Price)
	}
	if l.Rating > 0 {
		s += fmt.Sprintf(" rated %.1f", l.Rating)
	}
	return s
}

// resolveID maps a 1-based position to the option id; anything else is taken
// as an id and left for the workflow to validate.
func resolveID[T domain.Candidate](options []T, reply string) string {
	if n, err := strconv.Atoi(reply); err == nil && n >= 1 && n <= len(options) {
		return options[n-1].Info().ID
	}
	return reply
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinTags(tags []domain.ActivityTag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func money(v float64) string { return fmt.Sprintf("$%.0f", v) }

func ptr[T any](v T) *T { return &v }
