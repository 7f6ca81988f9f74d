package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/dustin/go-humanize"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/mediapath"
)

// View renders the current view
func (m Model) View() string {
	switch m.viewMode {
	case ViewBrowser:
		return m.viewBrowser()
	case ViewHelp:
		return m.viewHelp()
	case ViewUpload:
		return m.viewUpload()
	case ViewNewFolder:
		return m.viewNewFolder()
	}
	return ""
}

func (m Model) center(content string) string {
	if m.width > 0 && m.height > 0 {
		centered := centerStyle.Width(m.width).Render(content)
		return verticalCenterStyle.Height(m.height).Render(centered)
	}
	return content
}

func (m Model) breadcrumbs() string {
	parts := make([]string, 0, len(m.snap.Breadcrumbs))
	for i, c := range m.snap.Breadcrumbs {
		label := fmt.Sprintf("%d:%s", i, c.Name)
		if c.Path == m.snap.Path {
			parts = append(parts, currentCrumbStyle.Render(label))
		} else {
			parts = append(parts, crumbStyle.Render(label))
		}
	}
	return strings.Join(parts, " › ")
}

func (m Model) messages(s *strings.Builder) {
	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %s", m.err.Error())))
		s.WriteString("\n\n")
	case m.snap.Message != "":
		s.WriteString(errorStyle.Render(m.snap.Message))
		s.WriteString("\n\n")
	case m.statusMessage != "":
		s.WriteString(successStyle.Render(m.statusMessage))
		s.WriteString("\n\n")
	case m.snap.Notice != "":
		s.WriteString(successStyle.Render("✓ " + m.snap.Notice))
		s.WriteString("\n\n")
	}
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}

// viewBrowser renders the folder browser view
func (m Model) viewBrowser() string {
	var s strings.Builder

	title := "Media library: /" + m.snap.Path
	if m.pick {
		title += " | pick a file"
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n")
	s.WriteString(m.breadcrumbs())
	s.WriteString("\n\n")

	m.messages(&s)

	if m.uploading || m.snap.Uploading {
		s.WriteString(m.spinner.View() + " Uploading...\n\n")
	}

	if m.loading || m.snap.State == browser.StateLoading {
		s.WriteString(m.spinner.View() + " Loading...\n")
	} else {
		entries := m.entries()
		if len(entries) == 0 {
			if m.snap.Path == "" {
				s.WriteString("No folders yet. Press n to create one.\n")
			} else {
				s.WriteString("This folder is empty. Drop or upload an image to add one.\n")
			}
		}
		for i, e := range entries {
			cursor := " "
			if i == m.cursor {
				cursor = ">"
			}

			var line string
			if e.media == nil {
				line = fmt.Sprintf("%s %s", cursor, directoryStyle.Render(mediapath.Base(e.folder)+"/"))
			} else {
				line = fmt.Sprintf("%s %s", cursor, fileStyle.Render(e.media.Label))
				if e.media.UploadedAt != nil {
					line += " " + humanize.Time(*e.media.UploadedAt)
				}
				if i == m.cursor {
					line += "  " + urlStyle.Render(e.media.URL)
				}
			}

			if i == m.cursor {
				line = selectedStyle.Render(line)
			}
			s.WriteString(line)
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(helpLine(m.keys.browserHelp()))
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Drop image files onto the terminal to upload them here."))

	return m.center(browserStyle.Render(s.String()))
}

// viewHelp renders the help view
func (m Model) viewHelp() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("s4admin - Help"))
	s.WriteString("\n\n")

	help := `Navigation:
  ↑/k         Move cursor up
  ↓/j         Move cursor down
  ←/h         Go to the parent folder
  →/l/enter   Enter folder or select file
  0-9         Jump to a breadcrumb
  r           Refresh current folder

Media:
  u           Upload a local file into this folder
  n           Create a folder (kept once a file is uploaded into it)
  y           Copy the selected file's URL
  drop/paste  Upload the first image among dropped files

Uploads that fail inside a folder are retried once at the library root.

Configuration:
  s4admin reads .s4admin from the current directory,
  the home directory or /etc/s4admin.
`

	s.WriteString(help)
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc/?: back • q: quit"))

	return m.center(s.String())
}

// viewUpload renders the upload file selection view
func (m Model) viewUpload() string {
	var s strings.Builder

	// Show absolute path for better clarity
	displayPath := m.localPath
	if absPath, err := filepath.Abs(m.localPath); err == nil {
		displayPath = absPath
	}
	s.WriteString(titleStyle.Render(fmt.Sprintf("Local: %s → Media: /%s", displayPath, m.snap.Path)))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %s", m.err.Error())))
		s.WriteString("\n\n")
	}

	if len(m.localItems) == 0 {
		s.WriteString("No files or directories found.\n")
	}
	for i, item := range m.localItems {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}

		var line string
		if item.IsDir {
			line = fmt.Sprintf("%s %s", cursor, directoryStyle.Render(item.Name+"/"))
		} else {
			line = fmt.Sprintf("%s %s (%s)", cursor, fileStyle.Render(item.Name), humanize.IBytes(uint64(item.Size)))
		}

		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/k: up • ↓/j: down • ←/h: back • →/l/enter: select • esc: cancel • q: quit"))

	return m.center(browserStyle.Render(s.String()))
}

func (m Model) viewNewFolder() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("New folder in /" + m.snap.Path))
	s.WriteString("\n\n")
	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %s", m.err.Error())))
		s.WriteString("\n\n")
	}
	s.WriteString(m.input.View())
	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("enter: create • esc: cancel"))

	return m.center(browserStyle.Render(s.String()))
}
