package graph

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/ctxutil"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/neo4jdb"
)

// NicheRelation links a niche to a neighbour that shares its audience.
type NicheRelation struct {
	From   string
	To     string
	Weight float64
}

// RelatedNiche is a neighbour returned by a traversal.
type RelatedNiche struct {
	Name   string
	Weight float64
}

// NicheGraph stores niche adjacency in Neo4j. A nil *NicheGraph, or one
// built on a nil client, is a valid no-op graph.
type NicheGraph struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNicheGraph(client *neo4jdb.Client, log *logger.Logger) *NicheGraph {
	if log == nil {
		log = logger.Nop()
	}
	return &NicheGraph{client: client, log: log.With("repo", "NicheGraph")}
}

func (g *NicheGraph) enabled() bool {
	return g != nil && g.client != nil && g.client.Driver != nil
}

// relationRows dedupes undirected pairs and drops self loops. Weights for a
// repeated pair keep the maximum.
func relationRows(rels []NicheRelation, now string) []map[string]any {
	type pair struct{ a, b string }
	best := map[pair]NicheRelation{}
	order := []pair{}
	for _, r := range rels {
		a := normalization.NormalizeKey(r.From)
		b := normalization.NormalizeKey(r.To)
		if a == "" || b == "" || a == b {
			continue
		}
		if b < a {
			a, b = b, a
		}
		k := pair{a, b}
		prev, ok := best[k]
		if !ok {
			order = append(order, k)
		}
		if !ok || r.Weight > prev.Weight {
			best[k] = NicheRelation{From: a, To: b, Weight: r.Weight}
		}
	}
	out := make([]map[string]any, 0, len(order))
	for _, k := range order {
		r := best[k]
		w := r.Weight
		if w <= 0 {
			w = 1
		}
		out = append(out, map[string]any{
			"from":      r.From,
			"to":        r.To,
			"weight":    w,
			"synced_at": now,
		})
	}
	return out
}

func (g *NicheGraph) UpsertRelations(ctx context.Context, rels []NicheRelation) error {
	if !g.enabled() {
		return nil
	}
	ctx = ctxutil.Default(ctx)
	rows := relationRows(rels, time.Now().UTC().Format(time.RFC3339Nano))
	if len(rows) == 0 {
		return nil
	}

	session := g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: g.client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT niche_name_unique IF NOT EXISTS FOR (n:Niche) REQUIRE n.name IS UNIQUE`, nil); err != nil {
		g.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
UNWIND $rels AS r
MERGE (a:Niche {name: r.from})
MERGE (b:Niche {name: r.to})
MERGE (a)-[e:RELATED]-(b)
SET e.weight = CASE WHEN e.weight IS NULL OR e.weight < r.weight THEN r.weight ELSE e.weight END,
    e.synced_at = r.synced_at
`, map[string]any{"rels": rows})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// Related returns up to limit niches adjacent to any seed, strongest first.
// Seeds themselves are never returned.
func (g *NicheGraph) Related(ctx context.Context, seeds []string, limit int) ([]RelatedNiche, error) {
	if !g.enabled() || len(seeds) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	ctx = ctxutil.Default(ctx)
	keys := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if k := normalization.NormalizeKey(s); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	session := g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: g.client.Database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (s:Niche)-[e:RELATED]-(n:Niche)
WHERE s.name IN $seeds AND NOT n.name IN $seeds
RETURN n.name AS name, max(e.weight) AS weight
ORDER BY weight DESC, name ASC
LIMIT $limit
`, map[string]any{"seeds": keys, "limit": int64(limit)})
		if err != nil {
			return nil, err
		}
		rows := []RelatedNiche{}
		for res.Next(ctx) {
			rec := res.Record()
			name, _ := rec.Get("name")
			weight, _ := rec.Get("weight")
			n, _ := name.(string)
			w, _ := weight.(float64)
			if strings.TrimSpace(n) == "" {
				continue
			}
			rows = append(rows, RelatedNiche{Name: n, Weight: w})
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, err
	}
	rows, _ := out.([]RelatedNiche)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Weight > rows[j].Weight })
	return rows, nil
}
