package match

import (
	"testing"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

func TestSummarize(t *testing.T) {
	t.Run("singleton under neutral-high", func(t *testing.T) {
		e := newTestEngine(DefaultConfig())
		g := e.Summarize(domain.Group{Members: []domain.NormalizedRecord{
			normRec(domain.SitePolymarket, "p1", "Will it rain in London?"),
		}})
		if g.Title != "Will it rain in London?" {
			t.Fatalf("Title = %q", g.Title)
		}
		if g.Confidence != 1.0 {
			t.Fatalf("Confidence = %v, want 1.0", g.Confidence)
		}
	})

	t.Run("singleton under flag-low", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SingletonPolicy = SingletonFlagLow
		cfg.SingletonLowConfidence = 0.25
		e := newTestEngine(cfg)
		g := e.Summarize(domain.Group{Members: []domain.NormalizedRecord{
			normRec(domain.SitePolymarket, "p1", "Will it rain in London?"),
		}})
		if g.Confidence != 0.25 {
			t.Fatalf("Confidence = %v, want 0.25", g.Confidence)
		}
	})

	t.Run("confidence is mean pairwise similarity", func(t *testing.T) {
		e := newTestEngine(DefaultConfig())
		g := e.Summarize(domain.Group{Members: []domain.NormalizedRecord{
			normRec(domain.SitePolymarket, "p1", "Trump wins 2028"),
			normRec(domain.SiteManifold, "m1", "trump wins 2028"),
		}})
		if g.Confidence != 1.0 {
			t.Fatalf("Confidence = %v, want 1.0 for identical canonical titles", g.Confidence)
		}
	})

	t.Run("confidence stays within bounds", func(t *testing.T) {
		e := newTestEngine(DefaultConfig())
		g := e.Summarize(domain.Group{Members: []domain.NormalizedRecord{
			normRec(domain.SitePolymarket, "p1", "Will BTC hit $100k by June?"),
			normRec(domain.SiteManifold, "m1", "BTC above $100k in June"),
			normRec(domain.SitePredictIt, "i1", "Bitcoin $100k before July"),
		}})
		if g.Confidence < 0 || g.Confidence > 1 {
			t.Fatalf("Confidence = %v outside [0,1]", g.Confidence)
		}
	})

	t.Run("centroid member supplies the title", func(t *testing.T) {
		// "Trump 2028" is a token subset of both longer phrasings, so it
		// scores 1.0 against each and has the highest aggregate similarity.
		e := newTestEngine(DefaultConfig())
		g := e.Summarize(domain.Group{Members: []domain.NormalizedRecord{
			normRec(domain.SitePolymarket, "p1", "Will Trump win the 2028 presidential election?"),
			normRec(domain.SiteManifold, "m1", "Trump wins 2028 presidential election"),
			normRec(domain.SitePredictIt, "i1", "Trump 2028"),
		}})
		if g.Title != "Trump 2028" {
			t.Fatalf("Title = %q", g.Title)
		}
	})

	t.Run("aggregate tie breaks to shorter then lexicographic title", func(t *testing.T) {
		e := newTestEngine(DefaultConfig())
		g := e.Summarize(domain.Group{Members: []domain.NormalizedRecord{
			normRec(domain.SitePolymarket, "p1", "trump wins 2028"),
			normRec(domain.SiteManifold, "m1", "Trump wins 2028"),
		}})
		// Both members tie on aggregate similarity and length; "Trump..."
		// sorts before "trump...".
		if g.Title != "Trump wins 2028" {
			t.Fatalf("Title = %q", g.Title)
		}
	})

	t.Run("empty group passes through", func(t *testing.T) {
		e := newTestEngine(DefaultConfig())
		g := e.Summarize(domain.Group{})
		if g.Title != "" || g.Confidence != 0 {
			t.Fatalf("got %+v", g)
		}
	})
}
