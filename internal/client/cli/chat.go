package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/models"
	"github.com/dmitrijs2005/gophchat/internal/client/recommend"
	"github.com/dmitrijs2005/gophchat/internal/client/services"
	"github.com/dmitrijs2005/gophchat/internal/filex"
)

// browseLimit caps /browse results fetched from the backend.
const browseLimit = 10

// Send sends text (with the staged image, if any) and prints the reply.
func (a *App) Send(ctx context.Context, text string) error {
	fmt.Fprintln(a.out, "Thinking...")

	msg, err := a.chat.SendMessage(ctx, text)
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		return nil
	case errors.Is(err, services.ErrSuperseded):
		return nil
	case err != nil:
		return err
	}

	a.printMessage(ctx, *msg)
	if !msg.IsError && len(msg.Recommendations) > 0 {
		fmt.Fprintf(a.out, "(%d recommendations, type /recs to see them)\n", len(msg.Recommendations))
	}
	return nil
}

// NewChat starts an empty chat.
func (a *App) NewChat(ctx context.Context) error {
	a.chat.StartNewChat()
	fmt.Fprintln(a.out, "Started a new chat.")
	return nil
}

// AttachImage stages the image at path for the next message.
func (a *App) AttachImage(ctx context.Context, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("usage: /image <path>")
	}

	f, err := filex.ReadImage(path)
	if err != nil {
		return err
	}
	a.chat.AttachImage(&models.Image{Name: f.Name, ContentType: f.ContentType, Data: f.Data})
	fmt.Fprintf(a.out, "Attached %s (%d KB). It will be sent with your next message.\n", f.Name, (len(f.Data)+1023)/1024)
	return nil
}

// RemoveImage drops the staged image.
func (a *App) RemoveImage(ctx context.Context) error {
	if a.chat.Snapshot().StagedImage == "" {
		fmt.Fprintln(a.out, "No image attached.")
		return nil
	}
	a.chat.RemoveImage()
	fmt.Fprintln(a.out, "Image removed.")
	return nil
}

// Recommendations prints the current recommendation panel.
func (a *App) Recommendations(ctx context.Context) error {
	recs := a.chat.Snapshot().Recommendations
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No recommendations yet. Ask about a topic to get some.")
		return nil
	}
	a.printRecommendations(recs)
	return nil
}

// Browse lists resources for topic from the backend. When the backend is
// unreachable the built-in catalog is shown instead.
func (a *App) Browse(ctx context.Context, topic string) error {
	topic = strings.TrimSpace(topic)

	recs, err := a.api.GetRecommendations(ctx, client.RecommendationQuery{Topic: topic, Limit: browseLimit})
	if err != nil {
		a.logger.Warn(ctx, "fetch recommendations failed", "topic", topic, "err", err)
		recs = recommend.Catalog(topic)
		fmt.Fprintln(a.out, "Backend unavailable, showing built-in resources.")
	}
	if len(recs) == 0 {
		fmt.Fprintf(a.out, "No resources found. Known topics: %s\n", strings.Join(recommend.Topics(), ", "))
		return nil
	}
	a.printRecommendations(recs)
	return nil
}

func (a *App) printRecommendations(recs []models.Recommendation) {
	for i, r := range recs {
		fmt.Fprintf(a.out, "%d. %s [%s, %s, %s]\n", i+1, r.Title, r.Type, r.Difficulty, r.EstimatedTime)
		if r.Description != "" {
			fmt.Fprintf(a.out, "   %s\n", r.Description)
		}
		fmt.Fprintf(a.out, "   %s\n", r.URL)
	}
}

// printMessage renders one transcript entry. Archived images get a
// temporary link when an ImageLinker is wired.
func (a *App) printMessage(ctx context.Context, m models.Message) {
	who := "You"
	if m.Role == models.RoleAssistant {
		who = "Assistant"
	}
	if m.IsError {
		who = "Error"
	}
	fmt.Fprintf(a.out, "%s: %s\n", who, m.Content)

	if !m.HasImage {
		return
	}
	if m.ImageKey == "" || a.images == nil {
		fmt.Fprintln(a.out, "   [image]")
		return
	}
	link, err := a.images.PresignGet(ctx, m.ImageKey)
	if err != nil {
		a.logger.Warn(ctx, "presign image link failed", "key", m.ImageKey, "err", err)
		fmt.Fprintln(a.out, "   [image]")
		return
	}
	fmt.Fprintf(a.out, "   [image] %s\n", link)
}
