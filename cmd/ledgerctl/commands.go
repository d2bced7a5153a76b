package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/debemdeboas/archive-ledger/internal/archive"
	"github.com/debemdeboas/archive-ledger/internal/app"
	"github.com/debemdeboas/archive-ledger/internal/auth"
	"github.com/debemdeboas/archive-ledger/internal/exception"
	"github.com/debemdeboas/archive-ledger/internal/model"
	"github.com/debemdeboas/archive-ledger/internal/render"
)

const timeFormat = "2006-01-02 15:04"

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// resolvePost accepts a slug or a post id.
func (c *cli) resolvePost(ctx context.Context, ref string) (*model.Post, error) {
	post, err := c.ledger.GetPostBySlug(ctx, ref)
	if errors.Is(err, exception.ErrNotFound) {
		return c.ledger.GetPost(ctx, model.PostID(ref))
	}
	return post, err
}

// resolveVersion accepts a version number, a version id or "current".
func (c *cli) resolveVersion(ctx context.Context, post *model.Post, ref string) (*model.Version, error) {
	if ref == "current" {
		return c.ledger.GetCurrentVersion(ctx, post.ID)
	}
	if n, err := strconv.Atoi(ref); err == nil {
		versions, err := c.ledger.ListVersions(ctx, post.ID)
		if err != nil {
			return nil, err
		}
		for _, v := range versions {
			if v.Number == n {
				return v, nil
			}
		}
		return nil, exception.NewVersionNotFoundError(ref)
	}
	return c.ledger.GetPostVersion(ctx, post.ID, model.VersionID(ref))
}

func runList(ctx context.Context, c *cli, args []string) error {
	posts, err := c.ledger.ListPosts(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, headerStyle.Render("SLUG")+"\t"+headerStyle.Render("STATUS")+"\t"+headerStyle.Render("MODIFIED")+"\t"+headerStyle.Render("ID"))
	for _, p := range posts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Slug, p.Status, p.ModifiedDate.Format(timeFormat), dimStyle.Render(string(p.ID)))
	}
	return tw.Flush()
}

func runHistory(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	post, err := c.resolvePost(ctx, args[0])
	if err != nil {
		return err
	}
	versions, err := c.ledger.ListVersions(ctx, post.ID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, headerStyle.Render("#")+"\t"+headerStyle.Render("CREATED")+"\t"+headerStyle.Render("AUTHOR")+"\t"+headerStyle.Render("TITLE")+"\t"+headerStyle.Render("SUMMARY"))
	for _, v := range versions {
		s := v.Summary(post.CurrentVersionID)
		num := strconv.Itoa(s.Number)
		if s.Current {
			num = currentStyle.Render("*" + num)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", num, s.CreatedAt.Format(timeFormat), s.CreatedBy, s.Title, s.ChangeSummary)
	}
	return tw.Flush()
}

func runShow(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("show", c.out)
	asJSON := fs.Bool("json", false, "Print the version as JSON")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return errUsage
	}

	post, err := c.resolvePost(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	ref := "current"
	if fs.NArg() == 2 {
		ref = fs.Arg(1)
	}
	v, err := c.resolveVersion(ctx, post, ref)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Fprintln(c.out, render.VersionMarkdown(v))
	return nil
}

func runCompare(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("compare", c.out)
	statOnly := fs.Bool("stat", false, "Only print line counts")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 3 {
		return errUsage
	}

	post, err := c.resolvePost(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	from, err := c.resolveVersion(ctx, post, fs.Arg(1))
	if err != nil {
		return err
	}
	to, err := c.resolveVersion(ctx, post, fs.Arg(2))
	if err != nil {
		return err
	}

	cmp, err := c.diff.Compare(ctx, post.ID, from.ID, to.ID)
	if err != nil {
		return err
	}

	if cmp.Identical() {
		fmt.Fprintln(c.out, dimStyle.Render("No differences."))
		return nil
	}

	m := cmp.Metadata
	if m.Title.Changed {
		fmt.Fprintf(c.out, "title:   %s -> %s\n", removedStyle.Render(m.Title.Old), addedStyle.Render(m.Title.New))
	}
	if m.Excerpt.Changed {
		fmt.Fprintf(c.out, "excerpt: %s -> %s\n", removedStyle.Render(m.Excerpt.Old), addedStyle.Render(m.Excerpt.New))
	}
	if m.Tags.Changed {
		fmt.Fprintf(c.out, "tags:    %s -> %s\n",
			removedStyle.Render(strings.Join(m.Tags.Old, ", ")), addedStyle.Render(strings.Join(m.Tags.New, ", ")))
	}

	st := cmp.Stats()
	fmt.Fprintf(c.out, "%s, %s\n", addedStyle.Render(fmt.Sprintf("+%d", st.Added)), removedStyle.Render(fmt.Sprintf("-%d", st.Removed)))
	if *statOnly || (st.Added == 0 && st.Removed == 0) {
		return nil
	}
	fmt.Fprint(c.out, colorDiff(cmp.Unified()))
	return nil
}

func runRollback(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("rollback", c.out)
	author := fs.String("author", "", "User recorded as the author of the rollback")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 2 {
		return errUsage
	}
	if *author == "" {
		*author = c.cfg.Auth.UserID
	}

	post, err := c.resolvePost(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	target, err := c.resolveVersion(ctx, post, fs.Arg(1))
	if err != nil {
		return err
	}

	v, err := c.ledger.Rollback(ctx, post.ID, target.ID, model.UserID(*author))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s version %d restores version %d\n", currentStyle.Render("Created"), v.Number, v.RestoredFrom)
	return nil
}

func runExport(ctx context.Context, c *cli, args []string) error {
	if len(args) > 1 {
		return errUsage
	}

	sink, err := app.NewSink(ctx, c.cfg.Archive)
	if err != nil {
		return err
	}
	exporter := archive.NewExporter(c.ledger, sink, c.cfg.Archive.Prefix)

	var res archive.Result
	if len(args) == 1 {
		post, err := c.resolvePost(ctx, args[0])
		if err != nil {
			return err
		}
		res, err = exporter.ExportPost(ctx, post.ID)
		if err != nil {
			return err
		}
	} else if res, err = exporter.ExportAll(ctx); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Exported %d posts: %d objects written, %d unchanged\n", res.Posts, res.Written, res.Skipped)
	return nil
}

// runSign signs challenges for the ed25519 login. Without an argument it
// reads challenges from the input until EOF or "quit".
func runSign(_ context.Context, c *cli, args []string) error {
	fs := newFlagSet("sign", c.out)
	keyPath := fs.String("key", "privkey.pem", "PKCS#8 PEM encoded Ed25519 private key")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	pem, err := os.ReadFile(*keyPath)
	if err != nil {
		return err
	}
	key, err := auth.LoadPrivateKey(pem)
	if err != nil {
		return err
	}

	if fs.NArg() == 1 {
		sig, err := auth.SignChallenge(key, fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, sig)
		return nil
	}

	fmt.Fprintln(c.out, "Enter challenges one by one. Type 'quit' to exit.")
	scanner := bufio.NewScanner(c.in)
	for {
		fmt.Fprint(c.out, promptStyle.Render("Enter challenge (base64): "))
		if !scanner.Scan() {
			break
		}
		challenge := strings.TrimSpace(scanner.Text())
		if challenge == "" {
			continue
		}
		if challenge == "quit" {
			break
		}
		sig, err := auth.SignChallenge(key, challenge)
		if err != nil {
			fmt.Fprintln(c.out, outputStyle.Render("Error: invalid base64"))
			continue
		}
		fmt.Fprintln(c.out, outputStyle.Render("Signature: "+sig))
	}
	return scanner.Err()
}
