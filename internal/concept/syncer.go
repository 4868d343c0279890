package concept

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/patternscan/pkg/config"
	"github.com/wonny/patternscan/pkg/httputil"
	"github.com/wonny/patternscan/pkg/logger"
)

const (
	clistPath = "/api/qt/clist/get"
	pageSize  = 500
	maxPages  = 20
)

// clistResponse is the list payload of the Eastmoney quote API
type clistResponse struct {
	Data *struct {
		Total int         `json:"total"`
		Diff  []clistItem `json:"diff"`
	} `json:"data"`
}

type clistItem struct {
	Code string `json:"f12"`
	Name string `json:"f14"`
}

// Board is one concept board
type Board struct {
	ID   string
	Name string
}

// SyncResult is a refreshed concept map plus the names seen on the way
type SyncResult struct {
	Concepts     *Map
	Names        Names
	Boards       int
	FailedBoards int
}

// Syncer rebuilds the concept map from Eastmoney concept boards
type Syncer struct {
	client *httputil.Client
	cfg    config.EastmoneyConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewSyncer creates a syncer; the client should carry retry and rate limit
func NewSyncer(client *httputil.Client, cfg config.EastmoneyConfig, log *logger.Logger) *Syncer {
	return &Syncer{
		client: client,
		cfg:    cfg,
		logger: log.WithField("module", "concept_sync"),
		now:    time.Now,
	}
}

// Sync fetches the top boards and their members. A board that fails is
// logged and skipped; an empty result is an error.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	boards, err := s.fetchBoards(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch concept boards: %w", err)
	}

	s.logger.WithField("boards", len(boards)).Info("Syncing concept boards")

	tags := make(map[string][]string)
	names := Names{}
	failed := 0
	for _, b := range boards {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		members, err := s.fetchMembers(ctx, b.ID)
		if err != nil {
			failed++
			s.logger.WithError(err).WithField("board", b.Name).Warn("Board sync failed, skipping")
			continue
		}

		for _, m := range members {
			code := padCode(m.Code)
			if m.Name != "" {
				names[code] = m.Name
			}
			if len(tags[code]) < s.cfg.TagsPerCode && !contains(tags[code], b.Name) {
				tags[code] = append(tags[code], b.Name)
			}
		}
	}

	if len(tags) == 0 {
		return nil, fmt.Errorf("concept sync produced no data (%d boards, %d failed)", len(boards), failed)
	}

	data := make(map[string]string, len(tags))
	for code, t := range tags {
		data[code] = strings.Join(t, " / ")
	}

	s.logger.WithFields(map[string]interface{}{
		"codes":  len(data),
		"failed": failed,
	}).Info("Concept sync completed")

	return &SyncResult{
		Concepts:     NewMap(s.now().Format("20060102"), data),
		Names:        names,
		Boards:       len(boards),
		FailedBoards: failed,
	}, nil
}

// fetchBoards returns the top MaxBoards concept boards by change
func (s *Syncer) fetchBoards(ctx context.Context) ([]Board, error) {
	items, err := s.fetchList(ctx, "m:90 t:3", s.cfg.MaxBoards)
	if err != nil {
		return nil, err
	}

	boards := make([]Board, 0, len(items))
	for _, it := range items {
		boards = append(boards, Board{ID: it.Code, Name: it.Name})
	}
	return boards, nil
}

func (s *Syncer) fetchMembers(ctx context.Context, boardID string) ([]clistItem, error) {
	return s.fetchList(ctx, "b:"+boardID+" f:!50", 0)
}

// fetchList pages through a clist query; limit 0 reads everything
func (s *Syncer) fetchList(ctx context.Context, filter string, limit int) ([]clistItem, error) {
	var out []clistItem
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("pn", fmt.Sprint(page))
		q.Set("pz", fmt.Sprint(pageSize))
		q.Set("po", "1")
		q.Set("np", "1")
		q.Set("fltt", "2")
		q.Set("invt", "2")
		q.Set("fid", "f3")
		q.Set("fs", filter)
		q.Set("fields", "f12,f14")

		var resp clistResponse
		if err := s.client.GetJSON(ctx, s.cfg.BaseURL+clistPath+"?"+q.Encode(), &resp); err != nil {
			return nil, err
		}
		if resp.Data == nil || len(resp.Data.Diff) == 0 {
			break
		}

		out = append(out, resp.Data.Diff...)
		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}
		if len(out) >= resp.Data.Total {
			break
		}
	}
	return out, nil
}

func padCode(code string) string {
	code = strings.TrimSpace(code)
	for len(code) < 6 {
		code = "0" + code
	}
	return code
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Persist writes the concept cache and merges the names into the name cache
func (r *SyncResult) Persist(conceptPath, namePath string) error {
	if err := r.Concepts.Save(conceptPath); err != nil {
		return fmt.Errorf("save concept cache: %w", err)
	}
	if namePath == "" || len(r.Names) == 0 {
		return nil
	}

	names, err := LoadNames(namePath)
	if err != nil {
		names = Names{}
	}
	names.Merge(r.Names)
	if err := names.Save(namePath); err != nil {
		return fmt.Errorf("save name cache: %w", err)
	}
	return nil
}
