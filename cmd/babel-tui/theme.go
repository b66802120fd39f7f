package main

import (
	"github.com/charmbracelet/lipgloss"

	"babelbridge/internal/turnview"
)

var playerColors = []lipgloss.Color{"#e8643a", "#4a9eff", "#3dba7e", "#d4a843", "#9b59b6"}

type uiTheme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	brand       lipgloss.Style
	brandAccent lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	footer      lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	inputPanel  lipgloss.Style
	promptCard  lipgloss.Style
	helpText    lipgloss.Style
	muted       lipgloss.Style
	selected    lipgloss.Style
	option      lipgloss.Style
	label       lipgloss.Style
	joinCode    lipgloss.Style
	banner      lipgloss.Style

	badgeWaiting   lipgloss.Style
	badgeActive    lipgloss.Style
	badgeCompleted lipgloss.Style
	badgeHost      lipgloss.Style

	bubbleMine   lipgloss.Style
	bubbleOther  lipgloss.Style
	bubbleAI     lipgloss.Style
	typing       lipgloss.Style
	diffCorrect  lipgloss.Style
	diffWrong    lipgloss.Style
	speakerStyle []lipgloss.Style
	scoreTier    map[turnview.Tier]lipgloss.Style
}

func newTheme() uiTheme {
	ink := lipgloss.Color("#1a1a2e")
	cream := lipgloss.Color("#faf7f2")
	accent := lipgloss.Color("#e8643a")
	accent2 := lipgloss.Color("#4a9eff")
	success := lipgloss.Color("#3dba7e")
	gold := lipgloss.Color("#d4a843")
	orange := lipgloss.Color("#f39c12")
	red := lipgloss.Color("#e74c3c")
	muted := lipgloss.Color("#8a8a9a")
	border := lipgloss.Color("#3a3a52")

	speakers := make([]lipgloss.Style, 0, len(playerColors))
	for _, c := range playerColors {
		speakers = append(speakers, lipgloss.NewStyle().Foreground(c).Bold(true))
	}
	badge := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(ink).Background(c).Bold(true).Padding(0, 1)
	}

	return uiTheme{
		root: lipgloss.NewStyle().
			Foreground(cream).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Foreground(cream).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		brand:       lipgloss.NewStyle().Foreground(cream).Bold(true),
		brandAccent: lipgloss.NewStyle().Foreground(accent).Bold(true),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(accent).
			Bold(true),
		footer: lipgloss.NewStyle().
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(accent2).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(red).Bold(true),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent2).
			Padding(0, 1),
		promptCard: lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		helpText: lipgloss.NewStyle().Foreground(muted),
		muted:    lipgloss.NewStyle().Foreground(muted),
		selected: lipgloss.NewStyle().
			Foreground(ink).
			Background(accent).
			Bold(true).
			Padding(0, 1),
		option:   lipgloss.NewStyle().Foreground(cream).Padding(0, 1),
		label:    lipgloss.NewStyle().Foreground(muted).Bold(true),
		joinCode: lipgloss.NewStyle().Foreground(cream).Bold(true),
		banner:   lipgloss.NewStyle().Foreground(success).Bold(true),

		badgeWaiting:   badge(gold),
		badgeActive:    badge(success),
		badgeCompleted: badge(muted),
		badgeHost:      badge(accent),

		bubbleMine: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		bubbleOther: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		bubbleAI: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(accent2).
			Padding(0, 1),
		typing:       lipgloss.NewStyle().Foreground(muted).Italic(true),
		diffCorrect:  lipgloss.NewStyle().Foreground(success),
		diffWrong:    lipgloss.NewStyle().Foreground(red).Underline(true),
		speakerStyle: speakers,
		scoreTier: map[turnview.Tier]lipgloss.Style{
			turnview.TierUnknown: lipgloss.NewStyle().Foreground(muted).Bold(true),
			turnview.TierSuccess: lipgloss.NewStyle().Foreground(success).Bold(true),
			turnview.TierGreat:   lipgloss.NewStyle().Foreground(accent2).Bold(true),
			turnview.TierAlmost:  lipgloss.NewStyle().Foreground(gold).Bold(true),
			turnview.TierPartial: lipgloss.NewStyle().Foreground(orange).Bold(true),
			turnview.TierMiss:    lipgloss.NewStyle().Foreground(red).Bold(true),
		},
	}
}

func (t uiTheme) speaker(colorIndex int) lipgloss.Style {
	return t.speakerStyle[colorIndex%len(t.speakerStyle)]
}

func (t uiTheme) score(label string) lipgloss.Style {
	return t.scoreTier[turnview.TierFor(label)]
}
