package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/thesavant42/scorekeeper/internal/codes"
	"github.com/thesavant42/scorekeeper/internal/models"
)

// sanitizeInput removes null bytes and other invisible control characters
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 || (r < 32 && r != '\t' && r != '\n' && r != '\r') {
			return -1
		}
		return r
	}, s)
}

// Action is what to do after a draw
type Action string

const (
	ActionDraw  Action = "draw"
	ActionReset Action = "reset"
	ActionQuit  Action = "quit"
)

// PromptNextAction asks what to do with the current pool
func PromptNextAction(remaining int) (Action, error) {
	action := ActionDraw
	if remaining == 0 {
		action = ActionReset
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Action]().
				Title("Next").
				Description(fmt.Sprintf("%d codes left in this pool", remaining)).
				Options(
					huh.NewOption("Draw another", ActionDraw),
					huh.NewOption("Reset pool to its original codes", ActionReset),
					huh.NewOption("Quit", ActionQuit),
				).
				Value(&action),
		),
	).WithTheme(NewAppTheme())

	if err := form.Run(); err != nil {
		return ActionQuit, fmt.Errorf("prompt cancelled: %w", err)
	}
	return action, nil
}

// PromptNewPool asks for a pool name and completion bounds
func PromptNewPool() (name string, filter models.PoolFilter, err error) {
	var minText, maxText string
	favorite := "any"

	completionInput := func(title string, v *string) *huh.Input {
		return huh.NewInput().
			Title(title).
			Placeholder("blank for no bound").
			Value(v).
			Validate(func(s string) error {
				s = strings.TrimSpace(sanitizeInput(s))
				if s != "" && !codes.IsCompletion(s) {
					return fmt.Errorf("enter a whole number from 0 to 100")
				}
				return nil
			})
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Pool name").
				Value(&name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name cannot be empty")
					}
					return nil
				}),
			completionInput("Minimum completion", &minText),
			completionInput("Maximum completion", &maxText),
			huh.NewSelect[string]().
				Title("Favorites").
				Options(
					huh.NewOption("Any", "any"),
					huh.NewOption("Favorites only", "yes"),
					huh.NewOption("Non-favorites only", "no"),
				).
				Value(&favorite),
		),
	).WithTheme(NewAppTheme())

	if err := form.Run(); err != nil {
		return "", filter, fmt.Errorf("prompt cancelled: %w", err)
	}

	name = strings.TrimSpace(sanitizeInput(name))
	filter.MinCompletion = parseBound(minText)
	filter.MaxCompletion = parseBound(maxText)
	switch favorite {
	case "yes":
		v := true
		filter.Favorite = &v
	case "no":
		v := false
		filter.Favorite = &v
	}
	return name, filter, nil
}

func parseBound(s string) *int {
	s = strings.TrimSpace(sanitizeInput(s))
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// ConfirmCreatePool asks whether to create a pool when none exist
func ConfirmCreatePool() (bool, error) {
	var confirm bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("No pools yet. Create one?").
				Affirmative("Create").
				Negative("Quit").
				Value(&confirm),
		),
	).WithTheme(NewAppTheme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirm, nil
}
