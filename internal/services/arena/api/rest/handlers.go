package rest

import (
	"encoding/json"
	"io"
	"net/http"

	apperrors "github.com/louisbranch/pcg.arena/internal/platform/errors"
	"github.com/louisbranch/pcg.arena/internal/services/arena/app"
)

// maxBodyBytes caps request bodies; vote telemetry stays small.
const maxBodyBytes = 1 << 20

type nextBattleRequest struct {
	ClientVersion string          `json:"client_version"`
	SessionID     string          `json:"session_id"`
	PlayerID      *string         `json:"player_id,omitempty"`
	Preferences   json.RawMessage `json:"preferences,omitempty"`
}

type generatorInfo struct {
	GeneratorID      string  `json:"generator_id"`
	Name             string  `json:"name"`
	Version          string  `json:"version"`
	DocumentationURL *string `json:"documentation_url,omitempty"`
}

type levelFormat struct {
	Type    string `json:"type"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Newline string `json:"newline"`
}

type levelPayload struct {
	Encoding string `json:"encoding"`
	Tilemap  string `json:"tilemap"`
}

type levelMetadata struct {
	Seed     *string        `json:"seed,omitempty"`
	Controls map[string]any `json:"controls"`
}

type battleSide struct {
	LevelID     string        `json:"level_id"`
	Generator   generatorInfo `json:"generator"`
	Format      levelFormat   `json:"format"`
	Payload     levelPayload  `json:"level_payload"`
	ContentHash string        `json:"content_hash"`
	Metadata    levelMetadata `json:"metadata"`
}

type battlePresentation struct {
	PlayOrder                     string `json:"play_order"`
	RevealGeneratorNamesAfterVote bool   `json:"reveal_generator_names_after_vote"`
	SuggestedTimeLimitSeconds     int    `json:"suggested_time_limit_seconds"`
}

type battleBody struct {
	BattleID     string             `json:"battle_id"`
	IssuedAtUTC  string             `json:"issued_at_utc"`
	ExpiresAtUTC *string            `json:"expires_at_utc,omitempty"`
	Presentation battlePresentation `json:"presentation"`
	Left         battleSide         `json:"left"`
	Right        battleSide         `json:"right"`
}

type battleEnvelope struct {
	ProtocolVersion string     `json:"protocol_version"`
	Battle          battleBody `json:"battle"`
}

type castVoteRequest struct {
	ClientVersion string          `json:"client_version"`
	SessionID     string          `json:"session_id"`
	BattleID      string          `json:"battle_id"`
	Result        string          `json:"result"`
	LeftTags      []string        `json:"left_tags"`
	RightTags     []string        `json:"right_tags"`
	Telemetry     json.RawMessage `json:"telemetry,omitempty"`
	PlayerID      *string         `json:"player_id,omitempty"`
}

type previewEntry struct {
	GeneratorID string  `json:"generator_id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	GamesPlayed int     `json:"games_played"`
}

type leaderboardPreview struct {
	UpdatedAtUTC string         `json:"updated_at_utc"`
	Generators   []previewEntry `json:"generators"`
}

type voteEnvelope struct {
	ProtocolVersion string             `json:"protocol_version"`
	Accepted        bool               `json:"accepted"`
	VoteID          string             `json:"vote_id"`
	Preview         leaderboardPreview `json:"leaderboard_preview"`
}

type leaderboardEntry struct {
	Rank         int     `json:"rank"`
	GeneratorID  string  `json:"generator_id"`
	Name         string  `json:"name"`
	Version      string  `json:"version"`
	Rating       float64 `json:"rating"`
	RD           float64 `json:"rd"`
	GamesPlayed  int     `json:"games_played"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Ties         int     `json:"ties"`
	Skips        int     `json:"skips"`
	UpdatedAtUTC string  `json:"updated_at_utc"`
}

type leaderboardEnvelope struct {
	ProtocolVersion string             `json:"protocol_version"`
	UpdatedAtUTC    string             `json:"updated_at_utc"`
	Generators      []leaderboardEntry `json:"generators"`
}

type confusionCell struct {
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	Ties        int `json:"ties"`
	Skips       int `json:"skips"`
	BattleCount int `json:"battle_count"`
}

type confusionGenerator struct {
	GeneratorID string `json:"generator_id"`
	Name        string `json:"name"`
}

type confusionCoverage struct {
	TotalPairs           int `json:"total_possible_pairs"`
	PairsWithData        int `json:"pairs_with_data"`
	PairsAtTarget        int `json:"pairs_at_target"`
	TargetBattlesPerPair int `json:"target_battles_per_pair"`
}

type confusionEnvelope struct {
	ProtocolVersion string               `json:"protocol_version"`
	Generators      []confusionGenerator `json:"generators"`
	Matrix          [][]*confusionCell   `json:"matrix"`
	Coverage        confusionCoverage    `json:"coverage"`
}

type matchmakingStatsEnvelope struct {
	ProtocolVersion         string  `json:"protocol_version"`
	TotalGenerators         int     `json:"total_generators"`
	TotalPossiblePairs      int     `json:"total_possible_pairs"`
	PairsWithBattles        int     `json:"pairs_with_battles"`
	PairsAtTarget           int     `json:"pairs_at_target"`
	CoveragePercent         float64 `json:"coverage_percent"`
	TargetCoveragePercent   float64 `json:"target_coverage_percent"`
	AverageRD               float64 `json:"average_rd"`
	NewGeneratorsCount      int     `json:"new_generators_count"`
	TargetBattlesPerPair    int     `json:"target_battles_per_pair"`
	MinGamesForSignificance int     `json:"min_games_for_significance"`
}

type resultBucket struct {
	Result  string  `json:"result"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type platformStatsEnvelope struct {
	ProtocolVersion    string         `json:"protocol_version"`
	TotalVotes         int            `json:"total_votes"`
	CompletedBattles   int            `json:"completed_battles"`
	UniqueSessions     int            `json:"unique_sessions"`
	ActiveGenerators   int            `json:"active_generators"`
	TotalLevels        int            `json:"total_levels"`
	ResultDistribution []resultBucket `json:"result_distribution"`
}

type healthEnvelope struct {
	ProtocolVersion string `json:"protocol_version"`
	Status          string `json:"status"`
}

func (m *Module) handleNextBattle(w http.ResponseWriter, r *http.Request) {
	var req nextBattleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	issued, err := m.service.NextBattle(r.Context(), app.NextBattleInput{
		SessionID:     req.SessionID,
		PlayerID:      req.PlayerID,
		ClientVersion: req.ClientVersion,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, battleEnvelope{
		ProtocolVersion: ProtocolVersion,
		Battle:          renderBattle(issued),
	})
}

func (m *Module) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	issued, err := m.service.GetBattle(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, battleEnvelope{
		ProtocolVersion: ProtocolVersion,
		Battle:          renderBattle(issued),
	})
}

func (m *Module) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req castVoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := m.service.CastVote(r.Context(), app.CastVoteInput{
		BattleID:      req.BattleID,
		SessionID:     req.SessionID,
		PlayerID:      req.PlayerID,
		Result:        req.Result,
		LeftTags:      req.LeftTags,
		RightTags:     req.RightTags,
		Telemetry:     req.Telemetry,
		ClientVersion: req.ClientVersion,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	preview := leaderboardPreview{
		UpdatedAtUTC: formatTime(outcome.Leaderboard.UpdatedAt),
		Generators:   make([]previewEntry, 0, len(outcome.Leaderboard.Entries)),
	}
	for _, entry := range outcome.Leaderboard.Entries {
		preview.Generators = append(preview.Generators, previewEntry{
			GeneratorID: entry.GeneratorID,
			Name:        entry.Name,
			Rating:      entry.Rating,
			GamesPlayed: entry.GamesPlayed,
		})
	}

	_ = WriteJSON(w, http.StatusOK, voteEnvelope{
		ProtocolVersion: ProtocolVersion,
		Accepted:        true,
		VoteID:          outcome.VoteID,
		Preview:         preview,
	})
}

func (m *Module) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := m.service.Leaderboard(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	envelope := leaderboardEnvelope{
		ProtocolVersion: ProtocolVersion,
		UpdatedAtUTC:    formatTime(board.UpdatedAt),
		Generators:      make([]leaderboardEntry, 0, len(board.Entries)),
	}
	for _, entry := range board.Entries {
		envelope.Generators = append(envelope.Generators, leaderboardEntry{
			Rank:         entry.Rank,
			GeneratorID:  entry.GeneratorID,
			Name:         entry.Name,
			Version:      entry.Version,
			Rating:       entry.Rating,
			RD:           entry.RD,
			GamesPlayed:  entry.GamesPlayed,
			Wins:         entry.Wins,
			Losses:       entry.Losses,
			Ties:         entry.Ties,
			Skips:        entry.Skips,
			UpdatedAtUTC: formatTime(entry.UpdatedAt),
		})
	}
	_ = WriteJSON(w, http.StatusOK, envelope)
}

func (m *Module) handleConfusionMatrix(w http.ResponseWriter, r *http.Request) {
	matrix, err := m.service.ConfusionMatrix(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	envelope := confusionEnvelope{
		ProtocolVersion: ProtocolVersion,
		Generators:      make([]confusionGenerator, 0, len(matrix.Generators)),
		Matrix:          make([][]*confusionCell, len(matrix.Cells)),
		Coverage: confusionCoverage{
			TotalPairs:           matrix.TotalPairs,
			PairsWithData:        matrix.PairsWithData,
			PairsAtTarget:        matrix.PairsAtTarget,
			TargetBattlesPerPair: matrix.TargetBattlesPerPair,
		},
	}
	for _, g := range matrix.Generators {
		envelope.Generators = append(envelope.Generators, confusionGenerator{
			GeneratorID: g.ID, Name: g.Name,
		})
	}
	for i, row := range matrix.Cells {
		envelope.Matrix[i] = make([]*confusionCell, len(row))
		for j, cell := range row {
			if cell == nil {
				continue
			}
			envelope.Matrix[i][j] = &confusionCell{
				Wins:        cell.Wins,
				Losses:      cell.Losses,
				Ties:        cell.Ties,
				Skips:       cell.Skips,
				BattleCount: cell.BattleCount,
			}
		}
	}
	_ = WriteJSON(w, http.StatusOK, envelope)
}

func (m *Module) handleMatchmakingStats(w http.ResponseWriter, r *http.Request) {
	snap, err := m.service.MatchmakingStats(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, matchmakingStatsEnvelope{
		ProtocolVersion:         ProtocolVersion,
		TotalGenerators:         snap.TotalGenerators,
		TotalPossiblePairs:      snap.TotalPossiblePairs,
		PairsWithBattles:        snap.PairsWithBattles,
		PairsAtTarget:           snap.PairsAtTarget,
		CoveragePercent:         snap.CoveragePercent,
		TargetCoveragePercent:   snap.TargetCoveragePercent,
		AverageRD:               snap.AverageRD,
		NewGeneratorsCount:      snap.NewGeneratorsCount,
		TargetBattlesPerPair:    snap.TargetBattlesPerPair,
		MinGamesForSignificance: snap.MinGamesForSignificance,
	})
}

func (m *Module) handlePlatformStats(w http.ResponseWriter, r *http.Request) {
	totals, err := m.service.PlatformStats(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	envelope := platformStatsEnvelope{
		ProtocolVersion:    ProtocolVersion,
		TotalVotes:         totals.TotalVotes,
		CompletedBattles:   totals.CompletedBattles,
		UniqueSessions:     totals.UniqueSessions,
		ActiveGenerators:   totals.ActiveGenerators,
		TotalLevels:        totals.TotalLevels,
		ResultDistribution: make([]resultBucket, 0, len(totals.ResultDistribution)),
	}
	for _, bucket := range totals.ResultDistribution {
		envelope.ResultDistribution = append(envelope.ResultDistribution, resultBucket{
			Result: string(bucket.Result), Count: bucket.Count, Percent: bucket.Percent,
		})
	}
	_ = WriteJSON(w, http.StatusOK, envelope)
}

func (m *Module) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = WriteJSON(w, http.StatusOK, healthEnvelope{
		ProtocolVersion: ProtocolVersion,
		Status:          "ok",
	})
}

// decodeBody parses a JSON request body into dst, writing the error
// envelope on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
		_ = body.Close()
	}()

	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		WriteError(w, r, apperrors.Wrap(apperrors.CodeInvalidPayload, "malformed JSON body", err))
		return false
	}
	return true
}

func renderBattle(issued app.IssuedBattle) battleBody {
	return battleBody{
		BattleID:     issued.Battle.ID,
		IssuedAtUTC:  formatTime(issued.Battle.IssuedAt),
		ExpiresAtUTC: formatTimePtr(issued.Battle.ExpiresAt),
		Presentation: battlePresentation{
			PlayOrder:                     app.PlayOrderLeftThenRight,
			RevealGeneratorNamesAfterVote: app.RevealGeneratorNamesDefault,
			SuggestedTimeLimitSeconds:     app.SuggestedTimeLimitSeconds,
		},
		Left:  renderSide(issued.Left),
		Right: renderSide(issued.Right),
	}
}

func renderSide(side app.IssuedSide) battleSide {
	var docURL *string
	if side.Generator.DocumentationURL != "" {
		docURL = &side.Generator.DocumentationURL
	}
	return battleSide{
		LevelID: side.Level.ID,
		Generator: generatorInfo{
			GeneratorID:      side.Generator.ID,
			Name:             side.Generator.Name,
			Version:          side.Generator.Version,
			DocumentationURL: docURL,
		},
		Format: levelFormat{
			Type:    "ASCII_TILEMAP",
			Width:   side.Level.Width,
			Height:  side.Level.Height,
			Newline: "\n",
		},
		Payload: levelPayload{
			Encoding: "utf-8",
			Tilemap:  side.Level.Tilemap,
		},
		ContentHash: side.Level.ContentHash,
		Metadata: levelMetadata{
			Seed:     side.Level.Seed,
			Controls: map[string]any{},
		},
	}
}
