// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"inkpost/internal/client"
	"inkpost/internal/config"
	"inkpost/internal/feed"
	"inkpost/internal/models"
)

// newAPI builds a client whose session is persisted in the session file.
func newAPI(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	path := cfg.SessionFile
	if path == "" {
		path = client.DefaultSessionFile()
	}
	session := client.NewSession(client.NewFileStore(path))
	if err := session.Hydrate(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
	}

	api := client.New(cfg.APIURL, session)
	api.OnUnauthorized = func() {
		fmt.Fprintln(cmd.ErrOrStderr(), "session expired, run `inkpost login` to sign in again")
	}
	return api, nil
}

func requireSession(api *client.Client) error {
	if !api.Session().Authenticated() {
		return errors.New("not signed in, run `inkpost login` first")
	}
	return nil
}

func registerCmd() *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			creds, err := api.Register(cmd.Context(), username, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s\n", creds.User.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", os.Getenv("INKPOST_PASSWORD"), "password (defaults to $INKPOST_PASSWORD)")
	return cmd
}

func loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			creds, err := api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s until %s\n",
				creds.User.Username, creds.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", os.Getenv("INKPOST_PASSWORD"), "password (defaults to $INKPOST_PASSWORD)")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session token and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			if err := api.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List or create categories",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			cats, err := api.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSLUG")
			for _, c := range cats {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.ID, c.Name, c.Slug)
			}
			return tw.Flush()
		},
	}, &cobra.Command{
		Use:   "create NAME",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			if err := requireSession(api); err != nil {
				return err
			}
			c, err := api.CreateCategory(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created category %s (%s)\n", c.Name, c.ID)
			return nil
		},
	})
	return cmd
}

func postsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Read and write posts",
	}
	cmd.AddCommand(postsListCmd(), postsShowCmd(), postsWriteCmd("create"), postsWriteCmd("update"), postsDeleteCmd())
	return cmd
}

// newFeed returns a coordinator loaded with the server's posts and
// categories.
func newFeed(ctx context.Context, api *client.Client) (*feed.Coordinator, *feed.Store, error) {
	st := feed.NewStore()
	coord := feed.NewCoordinator(api, st, api.Session().User)
	if err := coord.Refresh(ctx); err != nil {
		return nil, nil, err
	}
	cats, err := api.ListCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	coord.SetCategories(cats)
	return coord, st, nil
}

func postsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			if err := requireSession(api); err != nil {
				return err
			}
			_, st, err := newFeed(cmd.Context(), api)
			if err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), st.State().Visible())
			return nil
		},
	}
}

func postsShowCmd() *cobra.Command {
	var html bool
	cmd := &cobra.Command{
		Use:   "show ID|SLUG",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			if err := requireSession(api); err != nil {
				return err
			}
			p, err := api.GetPost(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n\n", p.Title, strings.Repeat("=", len([]rune(p.Title))))
			fmt.Fprintf(out, "id:       %s\nslug:     %s\n", p.ID, p.Slug)
			if p.Category != nil {
				fmt.Fprintf(out, "category: %s\n", p.Category.Name)
			}
			if p.Author != nil {
				fmt.Fprintf(out, "author:   %s\n", p.Author.Username)
			}
			image := p.FeaturedImage
			if p.HasDefaultImage() {
				image = "(default)"
			}
			fmt.Fprintf(out, "image:    %s\ncreated:  %s\n\n", image, p.CreatedAt.Local().Format("2006-01-02 15:04"))
			if html {
				fmt.Fprintln(out, p.ContentHTML)
			} else {
				fmt.Fprintln(out, p.Content)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&html, "html", false, "print the rendered HTML instead of the raw content")
	return cmd
}

func postsWriteCmd(verb string) *cobra.Command {
	var title, content, category, image string
	cmd := &cobra.Command{
		Use:   verb,
		Short: "Create a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			if err := requireSession(api); err != nil {
				return err
			}
			ctx := cmd.Context()
			coord, st, err := newFeed(ctx, api)
			if err != nil {
				return err
			}

			d := feed.Draft{Title: title, Content: content, CategoryID: category}
			if len(args) == 1 {
				d.ID = args[0]
				if prev, ok := st.State().Find(d.ID); ok {
					d = fillDraft(d, prev)
				}
			}
			if d.CategoryID != "" {
				if d.CategoryID, err = resolveCategory(ctx, api, d.CategoryID); err != nil {
					return err
				}
			}
			if image != "" {
				if d.Image, err = readImage(image); err != nil {
					return err
				}
			}

			sub, err := coord.Submit(ctx, d)
			if err != nil {
				return err
			}
			return follow(cmd.OutOrStdout(), coord, sub)
		},
	}
	if verb == "update" {
		cmd.Use = "update ID"
		cmd.Short = "Edit a post; omitted fields keep their current values"
		cmd.Args = cobra.ExactArgs(1)
	}
	cmd.Flags().StringVar(&title, "title", "", "post title")
	cmd.Flags().StringVar(&content, "content", "", "post content (markdown)")
	cmd.Flags().StringVar(&category, "category", "", "category id or name")
	cmd.Flags().StringVar(&image, "image", "", "path to a featured image")
	return cmd
}

func postsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := newAPI(cmd)
			if err != nil {
				return err
			}
			if err := requireSession(api); err != nil {
				return err
			}
			coord, _, err := newFeed(cmd.Context(), api)
			if err != nil {
				return err
			}
			return follow(cmd.OutOrStdout(), coord, coord.Delete(cmd.Context(), args[0]))
		},
	}
}

// fillDraft completes an edit with the current values of fields the user
// left out, so validation sees the post as it will be saved.
func fillDraft(d feed.Draft, prev feed.Item) feed.Draft {
	if d.Title == "" {
		d.Title = prev.Title
	}
	if d.Content == "" {
		d.Content = prev.Content
	}
	if d.CategoryID == "" && prev.Category != nil {
		d.CategoryID = prev.Category.ID.String()
	}
	return d
}

// resolveCategory accepts a category id or a case-insensitive name.
func resolveCategory(ctx context.Context, api *client.Client, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return ref, nil
	}
	cats, err := api.ListCategories(ctx)
	if err != nil {
		return "", err
	}
	for _, c := range cats {
		if strings.EqualFold(c.Name, ref) || c.Slug == ref {
			return c.ID.String(), nil
		}
	}
	return "", fmt.Errorf("unknown category %q", ref)
}

func readImage(path string) (*client.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return &client.Image{Filename: filepath.Base(path), ContentType: ct, Data: data}, nil
}

// follow prints notices until the submission settles.
func follow(w io.Writer, coord *feed.Coordinator, sub *feed.Submission) error {
	for {
		select {
		case n := <-coord.Notices():
			printNotice(w, n)
		case <-sub.Done():
			for {
				select {
				case n := <-coord.Notices():
					printNotice(w, n)
				default:
					if p := sub.Post(); p != nil {
						fmt.Fprintf(w, "%s  %s\n", p.ID, p.Slug)
					}
					return sub.Err()
				}
			}
		}
	}
}

func printNotice(w io.Writer, n feed.Notice) {
	fmt.Fprintf(w, "[%s] %s\n", n.Level, n.Message)
}

func printItems(w io.Writer, items []feed.Item) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tAUTHOR\tCREATED")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Title, categoryName(it.Category), authorName(it.Author),
			it.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func categoryName(c *models.Category) string {
	if c == nil {
		return "-"
	}
	return c.Name
}

func authorName(a *models.Author) string {
	if a == nil {
		return "-"
	}
	return a.Username
}
