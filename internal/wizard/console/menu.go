// SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	itemStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

// DoneMark renders the completion checkmark used in step and group titles.
func DoneMark() string {
	return doneStyle.Render("✓") + " "
}

// Item is one selectable menu entry. Title is a function because entries
// show live state (done marks, progress counts) that changes between visits.
type Item struct {
	Title  func() string
	Action func()
}

// StaticItem builds an Item with a fixed title.
func StaticItem(title string, action func()) Item {
	return Item{
		Title:  func() string { return title },
		Action: action,
	}
}

// Menu is a numbered selection menu. Show loops until the operator picks the
// exit entry; every selection re-renders so titles stay current.
type Menu struct {
	Title    string
	Subtitle func() string
	Prologue string
	ExitText string
	Items    []Item
}

// Show renders the menu and dispatches selections until exit.
func (m *Menu) Show(io IO) {
	exitText := m.ExitText
	if exitText == "" {
		exitText = "Exit"
	}

	for {
		io.Println()
		io.Println(titleStyle.Render(m.Title))
		if m.Subtitle != nil {
			if sub := strings.TrimSpace(m.Subtitle()); sub != "" {
				io.Println(subtitleStyle.Render(sub))
			}
		}
		if m.Prologue != "" {
			io.Printf("%s\n", m.Prologue)
		}
		io.Println()
		for i, item := range m.Items {
			io.Println(itemStyle.Render(fmt.Sprintf("%d. %s", i+1, item.Title())))
		}
		io.Println(itemStyle.Render(fmt.Sprintf("0. %s", exitText)))

		answer := io.Prompt("\nSelect")
		if answer == "" {
			// Empty answer (or EOF) leaves the menu
			return
		}
		index, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil || index < 0 || index > len(m.Items) {
			io.Println("Invalid selection")
			continue
		}
		if index == 0 {
			return
		}
		m.Items[index-1].Action()
	}
}
