package main

import (
	"chat-relay/client"
	"chat-relay/domain"
	"chat-relay/domain/search"
	"chat-relay/session"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const help = `/users                  list contacts
/open <n|name|id>       open the conversation with a contact
/older                  load older messages
/find <terms> [--limit n] [--with id]
/like                   send a thumbs up
/image <path>           upload an image and send it
/sound                  toggle sound cues
/theme                  toggle the theme
/quit`

type repl struct {
	api         *client.Client
	session     *session.Session
	composer    *session.Composer
	preferences *session.Preferences
	out         *printer
	contacts    []domain.User
}

// handle runs one input line and reports whether the user asked to quit.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.say(ctx, line)
		return false
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	var err error
	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		r.out.info("%s", help)
	case "/users":
		err = r.users(ctx)
	case "/open":
		err = r.open(ctx, arg)
	case "/older":
		err = r.older(ctx)
	case "/find":
		err = r.find(ctx, line)
	case "/like":
		err = r.sent(r.composer.ThumbsUp(ctx))
	case "/image":
		err = r.image(ctx, arg)
	case "/sound":
		var enabled bool
		if enabled, err = r.preferences.ToggleSound(); err == nil {
			r.out.info("sound enabled: %t", enabled)
		}
	case "/theme":
		var theme session.Theme
		if theme, err = r.preferences.ToggleTheme(); err == nil {
			r.out.info("theme: %s", theme)
		}
	default:
		r.out.info("unknown command %s, type /help", name)
	}
	if err != nil {
		r.out.fail(err)
	}
	return false
}

func (r *repl) say(ctx context.Context, text string) {
	if _, ok := r.session.Selected(); !ok {
		r.out.info("no conversation open, use /open")
		return
	}
	r.composer.Type(text)
	if err := r.sent(r.composer.KeyDown(ctx, session.KeyEnter, false)); err != nil {
		r.out.fail(err)
	}
}

func (r *repl) sent(m *domain.Message, err error) error {
	if err != nil {
		return err
	}
	if m != nil {
		r.out.message(*m)
	}
	return nil
}

func (r *repl) users(ctx context.Context) error {
	contacts, err := r.api.Contacts(ctx)
	if err != nil {
		return err
	}
	r.contacts = contacts
	for i, u := range contacts {
		r.out.info("%2d. %s <%s> %s", i+1, u.Name, u.Email, u.ID)
	}
	return nil
}

func (r *repl) open(ctx context.Context, arg string) error {
	if r.contacts == nil {
		if err := r.users(ctx); err != nil {
			return err
		}
	}
	user, ok := pick(r.contacts, arg)
	if !ok {
		return fmt.Errorf("no contact matches %q", arg)
	}
	if err := r.session.Select(ctx, user); err != nil {
		return err
	}
	r.out.info("conversation with %s", user.Name)
	for _, m := range r.session.Messages() {
		r.out.message(m)
	}
	return nil
}

// pick finds a contact by 1-based position, ID or case-insensitive name.
func pick(contacts []domain.User, arg string) (domain.User, bool) {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(contacts) {
		return contacts[n-1], true
	}
	for _, u := range contacts {
		if u.ID == arg || strings.EqualFold(u.Name, arg) {
			return u, true
		}
	}
	return domain.User{}, false
}

func (r *repl) older(ctx context.Context) error {
	before := len(r.session.Messages())
	more, err := r.session.LoadOlder(ctx)
	if err != nil {
		return err
	}
	if !more {
		r.out.info("beginning of the conversation")
		return nil
	}
	messages := r.session.Messages()
	for _, m := range messages[:len(messages)-before] {
		r.out.message(m)
	}
	return nil
}

func (r *repl) find(ctx context.Context, line string) error {
	query := search.NewSearchQuery(line)
	if query.PartnerID == "" {
		selected, ok := r.session.Selected()
		if !ok {
			return fmt.Errorf("no conversation open, use /open or --with")
		}
		query.PartnerID = selected.ID
	}
	if query.Terms == "" {
		return fmt.Errorf("nothing to search")
	}
	found, err := r.api.Search(ctx, query.PartnerID, query.Terms, query.Limit)
	if err != nil {
		return err
	}
	r.out.info("%d result(s) for %q", len(found), query.Terms)
	for _, m := range found {
		r.out.message(m)
	}
	return nil
}

func (r *repl) image(ctx context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("usage: /image <path>")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	url, err := r.api.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	r.composer.AttachImage(url)
	return r.sent(r.composer.SendImage(ctx))
}
