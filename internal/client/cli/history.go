package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/history"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
)

var errNoListing = errors.New("run /history first")

// History prints the signed-in user's chats grouped by recency, optionally
// filtered by a title search. Entries are numbered for /open, /rename and
// /delete.
func (a *App) History(ctx context.Context, search string) error {
	all, err := a.chat.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	found := history.FilterByTitle(all, strings.TrimSpace(search))
	groups := history.GroupByRecency(found, a.now())

	listing := make([]models.Session, 0, groups.Len())
	if groups.Len() == 0 {
		if search != "" {
			fmt.Fprintf(a.out, "No chats match %q.\n", search)
		} else {
			fmt.Fprintln(a.out, "No chats yet.")
		}
	}

	active := a.chat.Snapshot().SessionID
	for _, b := range groups.Buckets() {
		fmt.Fprintf(a.out, "%s\n", b.Label)
		for _, s := range b.Sessions {
			listing = append(listing, s)
			mark := " "
			if s.ID != "" && s.ID == active {
				mark = "*"
			}
			fmt.Fprintf(a.out, " %s%2d. %s (%d messages)\n", mark, len(listing), s.Title, len(s.Messages))
		}
	}

	a.mu.Lock()
	a.listing = listing
	a.mu.Unlock()
	return nil
}

// pick resolves a 1-based index into the last history listing.
func (a *App) pick(arg string) (models.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.listing) == 0 {
		return models.Session{}, errNoListing
	}
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(a.listing) {
		return models.Session{}, fmt.Errorf("pick a chat between 1 and %d", len(a.listing))
	}
	return a.listing[n-1], nil
}

// Open makes chat n of the last listing the active chat and prints it.
func (a *App) Open(ctx context.Context, arg string) error {
	s, err := a.pick(arg)
	if err != nil {
		return err
	}

	if err := a.chat.OpenSession(ctx, s.ID); err != nil {
		return err
	}
	snap := a.chat.Snapshot()
	fmt.Fprintf(a.out, "== %s ==\n", snap.Title)
	for _, m := range snap.Messages {
		a.printMessage(ctx, m)
	}
	return nil
}

// Rename gives chat n a new title.
func (a *App) Rename(ctx context.Context, arg, title string) error {
	s, err := a.pick(arg)
	if err != nil {
		return err
	}
	if err := a.chat.RenameSession(ctx, s.ID, title); err != nil {
		return err
	}

	title = strings.TrimSpace(title)
	a.mu.Lock()
	for i := range a.listing {
		if a.listing[i].ID == s.ID {
			a.listing[i].Title = title
		}
	}
	a.mu.Unlock()
	fmt.Fprintf(a.out, "Renamed to %q.\n", title)
	return nil
}

// Delete removes chat n after confirmation.
func (a *App) Delete(ctx context.Context, arg string) error {
	s, err := a.pick(arg)
	if err != nil {
		return err
	}

	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete %q? (y/N)", s.Title), a.out)
	if err != nil {
		return err
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	if err := a.chat.DeleteSession(ctx, s.ID); err != nil {
		return err
	}

	a.mu.Lock()
	a.listing = nil
	a.mu.Unlock()
	fmt.Fprintln(a.out, "Deleted. Run /history to refresh the list.")
	return nil
}
