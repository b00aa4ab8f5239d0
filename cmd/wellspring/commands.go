package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/poiesic/wellspring/content"
	"github.com/poiesic/wellspring/core"
	"github.com/poiesic/wellspring/ingestion"
	"github.com/poiesic/wellspring/search"
	"github.com/poiesic/wellspring/storage"
	"github.com/urfave/cli/v2"
)

func (r *runner) ingestCommand(c *cli.Context) error {
	ctx := c.Context
	owner := c.String("owner")
	var refs []string
	source := core.SourceCLI
	if c.IsSet("text") {
		refs = append(refs, content.Inline(c.String("text")))
		source = core.SourcePaste
	}
	for _, arg := range c.Args().Slice() {
		path, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", arg, err)
		}
		refs = append(refs, path)
	}
	if len(refs) == 0 && !c.Bool("resume") {
		return errors.New("nothing to ingest: pass files or --text")
	}

	attribution := core.ContributorAttribution{
		OwnerID:             owner,
		DisplayName:         c.String("name"),
		Role:                c.String("role"),
		Gifts:               c.StringSlice("gift"),
		PrivacyLevel:        core.PrivacyLevel(c.String("privacy")),
		ConsentToCollective: c.Bool("consent"),
	}
	if err := core.ValidateAttribution(attribution); err != nil {
		return err
	}

	popts, err := r.pipelineOptions()
	if err != nil {
		return err
	}
	lib, err := r.openLibrary(true)
	if err != nil {
		return err
	}
	defer lib.Close()

	pipeline, err := lib.NewIngestionPipeline(popts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	if c.Bool("resume") {
		n, err := pipeline.Resume(ctx)
		if err != nil {
			return fmt.Errorf("failed to resume queued jobs: %w", err)
		}
		fmt.Fprintf(r.stderr, "Resumed %d queued jobs\n", n)
	}

	handles := make([]ingestion.JobHandle, 0, len(refs))
	for _, ref := range refs {
		handle, err := pipeline.Enqueue(ctx, &core.IngestionJob{
			OwnerID:       owner,
			RawContentRef: ref,
			Tags:          c.StringSlice("tag"),
			Attribution:   attribution,
			Source:        source,
		})
		if err != nil {
			return fmt.Errorf("failed to submit %s: %w", displayRef(ref), err)
		}
		handles = append(handles, handle)
	}

	tracker := newProgress(r.stderr, len(handles))
	failed := 0
	for i, handle := range handles {
		status, err := pipeline.Wait(ctx, handle)
		if err != nil {
			return err
		}
		tracker.record(status)

		ref := displayRef(refs[i])
		if status.State == ingestion.StateFailed {
			failed++
			fmt.Fprintf(r.stdout, "failed\t%s\t%s: %s\n", ref, status.FailedStep, status.Reason)
			continue
		}
		fmt.Fprintf(r.stdout, "persisted\t%s\tdocument %d\n", ref, status.DocumentID)
		for _, w := range status.Warnings {
			fmt.Fprintf(r.stdout, "  warning: %s\n", w)
		}
	}
	tracker.finish()

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(handles))
	}
	return nil
}

func displayRef(ref string) string {
	if strings.HasPrefix(ref, content.InlinePrefix) {
		return "(text)"
	}
	return ref
}

func (r *runner) balanceCommand(c *cli.Context) error {
	lib, err := r.openLibrary(false)
	if err != nil {
		return err
	}
	defer lib.Close()

	owner := c.String("owner")
	balance, err := lib.Balance(c.Context, owner)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	noun := "documents"
	if balance.DocumentCount == 1 {
		noun = "document"
	}
	fmt.Fprintf(r.stdout, "Balance for %s (%d %s)\n", owner, balance.DocumentCount, noun)
	for _, d := range core.Dimensions {
		fmt.Fprintf(r.stdout, "  %-7s %.3f\n", d, balance.Means.Get(d))
	}
	return nil
}

func (r *runner) showCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("show takes exactly one document ID")
	}
	id, err := strconv.ParseUint(c.Args().First(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document ID %q", c.Args().First())
	}

	lib, err := r.openLibrary(false)
	if err != nil {
		return err
	}
	defer lib.Close()

	doc, err := lib.Document(c.Context, c.String("owner"), core.ID(id))
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("document %d not found", id)
	}
	if err != nil {
		return err
	}

	out := r.stdout
	fmt.Fprintf(out, "Document %d (%s, %s)\n", doc.Id, doc.Source, doc.CreatedAt.Format("2006-01-02 15:04"))
	if len(doc.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(doc.Tags, ", "))
	}
	if name := doc.Attribution.DisplayName; name != "" {
		fmt.Fprintf(out, "Contributor: %s\n", name)
	}

	a := doc.Analysis
	if a != nil {
		if a.Fallback {
			fmt.Fprintln(out, "Analysis unavailable; neutral weights recorded")
		}
		if a.Summary != "" {
			fmt.Fprintf(out, "Summary: %s\n", a.Summary)
		}
		if len(a.Topics) > 0 {
			fmt.Fprintf(out, "Topics: %s\n", strings.Join(a.Topics, ", "))
		}
		weights := make([]string, 0, len(core.Dimensions))
		for _, d := range core.Dimensions {
			weights = append(weights, fmt.Sprintf("%s=%.2f", d, a.Weights.Get(d)))
		}
		fmt.Fprintf(out, "Weights: %s\n", strings.Join(weights, " "))
		if len(a.ConceptsIntroduced) > 0 {
			fmt.Fprintf(out, "Introduces: %s\n", strings.Join(a.ConceptsIntroduced, ", "))
		}
		if len(a.PracticesDescribed) > 0 {
			fmt.Fprintf(out, "Practices: %s\n", strings.Join(a.PracticesDescribed, ", "))
		}
	}

	if len(doc.Resonances) > 0 {
		fmt.Fprintln(out, "Resonances:")
		for _, res := range doc.Resonances {
			fmt.Fprintf(out, "  -> %d  %-18s %.3f", res.TargetID, res.Kind, res.Score)
			if len(res.SharedThemes) > 0 {
				fmt.Fprintf(out, "  [%s]", strings.Join(res.SharedThemes, ", "))
			}
			fmt.Fprintln(out)
		}
	}
	if len(doc.Bridges) > 0 {
		fmt.Fprintln(out, "Bridges:")
		for _, b := range doc.Bridges {
			terms := make([]string, 0, len(b.Parallels))
			for _, p := range b.Parallels {
				terms = append(terms, fmt.Sprintf("%s (%s)", p.Terminology, p.Framework))
			}
			fmt.Fprintf(out, "  %s: %s\n", b.CanonicalTag, strings.Join(terms, ", "))
		}
	}
	return nil
}

func (r *runner) searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("search needs a query")
	}
	maxHits := c.Int("max")
	if maxHits <= 0 {
		maxHits = r.cfg.Search.MaxHits
	}

	lib, err := r.openLibrary(false)
	if err != nil {
		return err
	}
	defer lib.Close()

	searcher, err := lib.NewSearcher(search.WithMinSimilarity(r.cfg.Search.MinSimilarity))
	if err != nil {
		return err
	}
	results, err := searcher.FindSimilar(c.Context, c.String("owner"), query, maxHits)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(r.stdout, "No matching documents")
		return nil
	}
	for _, res := range results {
		fmt.Fprintf(r.stdout, "%.3f\t%d\t%s\n", res.Score, res.Document.Id, excerpt(res.Document))
	}
	return nil
}

func excerpt(doc *core.Document) string {
	if doc.Analysis != nil && doc.Analysis.Summary != "" {
		return doc.Analysis.Summary
	}
	text := strings.Join(strings.Fields(doc.Content), " ")
	if len(text) > 80 {
		return text[:77] + "..."
	}
	return text
}

func (r *runner) conceptsCommand(c *cli.Context) error {
	kind := core.NodeKind(c.String("kind"))
	switch kind {
	case "", core.NodeKindConcept, core.NodeKindPractice:
	default:
		return fmt.Errorf("unknown node kind %q", kind)
	}

	lib, err := r.openLibrary(false)
	if err != nil {
		return err
	}
	defer lib.Close()

	if name := c.String("name"); name != "" {
		owner := c.String("owner")
		if owner == "" {
			return errors.New("--owner is required with --name")
		}
		searcher, err := lib.NewSearcher()
		if err != nil {
			return err
		}
		docs, err := searcher.DocumentsByConcept(c.Context, owner, name)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			fmt.Fprintf(r.stdout, "%d\t%s\n", doc.Id, excerpt(doc))
		}
		return nil
	}

	nodes, err := lib.Concepts(c.Context, kind)
	if err != nil {
		return fmt.Errorf("failed to list concepts: %w", err)
	}
	for _, n := range nodes {
		fmt.Fprintf(r.stdout, "%s\t%s\t%s\tintroduced by %d", n.Kind, n.Name, n.Tag, n.IntroducedBy)
		if n.Contributor != nil {
			who := n.Contributor.DisplayName
			if who == "" {
				who = n.Contributor.Role
			}
			if who != "" {
				fmt.Fprintf(r.stdout, " (%s)", who)
			}
		}
		fmt.Fprintln(r.stdout)
	}
	return nil
}

func (r *runner) bridgesCommand(c *cli.Context) error {
	lib, err := r.openLibrary(false)
	if err != nil {
		return err
	}
	defer lib.Close()

	bridges, err := lib.Bridges(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list bridges: %w", err)
	}
	for _, b := range bridges {
		fmt.Fprintf(r.stdout, "%s (%s)\n", b.CanonicalTag, b.Concept)
		for _, p := range b.Parallels {
			fmt.Fprintf(r.stdout, "  %-20s %s\n", p.Framework, p.Terminology)
		}
		if b.SynthesisNote != "" {
			fmt.Fprintf(r.stdout, "  %s\n", b.SynthesisNote)
		}
	}
	return nil
}
