package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediaapi"
)

// load runs a browser navigation off the UI goroutine.
func (m Model) load(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{err: fn(ctx)}
	}
}

// uploadFile uploads a local file through the picker control.
func (m Model) uploadFile(fullPath string) tea.Cmd {
	ctx, b := m.ctx, m.browser
	return func() tea.Msg {
		f, err := mediaapi.FileFromPath(fullPath)
		if err != nil {
			return statusMsg{message: err.Error(), isError: true}
		}
		media, err := b.Upload(ctx, browser.SourcePicker, f)
		return uploadedMsg{media: media, err: err}
	}
}

// dropFiles hands dropped paths to the drop control. Paths that cannot be
// read are skipped.
func (m Model) dropFiles(paths []string) tea.Cmd {
	ctx, b := m.ctx, m.browser
	return func() tea.Msg {
		files := make([]mediaapi.File, 0, len(paths))
		for _, p := range paths {
			f, err := mediaapi.FileFromPath(p)
			if err != nil {
				logging.Debug("skipping dropped path", logging.String("path", p), logging.Err(err))
				continue
			}
			files = append(files, f)
		}
		media, err := b.Drop(ctx, files)
		return uploadedMsg{media: media, err: err}
	}
}

// loadLocalFiles loads files and directories from the specified path
func (m Model) loadLocalFiles(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := os.ReadDir(path)
		if err != nil {
			return localFilesLoadedMsg{err: err}
		}

		// Always add parent directory entry (allows going above starting directory)
		localItems := []LocalItem{{Name: "..", IsDir: true}}

		for _, entry := range entries {
			if strings.HasPrefix(entry.Name(), ".") {
				continue // Skip hidden files/directories
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			localItems = append(localItems, LocalItem{
				Name:  entry.Name(),
				IsDir: entry.IsDir(),
				Size:  info.Size(),
			})
		}

		// Sort: directories first, then files
		sort.SliceStable(localItems, func(i, j int) bool {
			if localItems[i].IsDir != localItems[j].IsDir {
				return localItems[i].IsDir
			}
			if localItems[i].Name == ".." {
				return true
			}
			if localItems[j].Name == ".." {
				return false
			}
			return localItems[i].Name < localItems[j].Name
		})

		return localFilesLoadedMsg{items: localItems, path: path}
	}
}

func copyToClipboard(url string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(url); err != nil {
			return statusMsg{message: fmt.Sprintf("failed to copy URL: %v", err), isError: true}
		}
		return statusMsg{message: "Copied " + url}
	}
}
