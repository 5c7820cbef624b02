package lobby

import (
	"context"
	"fmt"
	"math"

	"gamelobby/internal/model"
	"gamelobby/internal/wireproto"
)

const cacheKeyActiveGames = "catalog:games:active"

func cacheKeyGame(name string) string { return "catalog:game:" + name }

// handleListGames returns every active game, read-through cached in
// Redis when enabled (SPEC_FULL.md §4.4 domain-stack addition).
func (s *Server) handleListGames() wireproto.Message {
	ctx := context.Background()

	var cached []map[string]any
	if s.cache.Get(ctx, cacheKeyActiveGames, &cached) {
		return wireproto.Message{"success": true, "games": toAnySlice(cached)}
	}

	games, err := s.catalog.Find("Game", map[string]any{"status": "active"})
	if err != nil {
		return errorMsg("Failed to fetch games")
	}

	s.cache.Set(ctx, cacheKeyActiveGames, games)
	return wireproto.Message{"success": true, "games": toAnySlice(games)}
}

// handleGameInfo returns game details plus the first 10 reviews and
// the rounded average rating.
func (s *Server) handleGameInfo(req wireproto.Message) wireproto.Message {
	gameName, _ := req["game_name"].(string)
	if gameName == "" {
		return errorMsg("Game name required")
	}

	ctx := context.Background()
	cacheKey := cacheKeyGame(gameName)

	var cached map[string]any
	if s.cache.Get(ctx, cacheKey, &cached) {
		return wireproto.Message(cached)
	}

	game, err := s.catalog.FindOne("Game", map[string]any{"name": gameName, "status": "active"})
	if err != nil || game == nil {
		return errorMsg("Game not found")
	}

	reviews, err := s.catalog.Find("Review", map[string]any{"game_id": game["_id"]})
	if err != nil {
		reviews = nil
	}

	var total float64
	for _, r := range reviews {
		total += floatField(r["rating"])
	}
	avgRating := 0.0
	if len(reviews) > 0 {
		avgRating = math.Round(total/float64(len(reviews))*10) / 10
	}

	limited := reviews
	if len(limited) > 10 {
		limited = limited[:10]
	}

	result := map[string]any{
		"success":      true,
		"game":         game,
		"reviews":      toAnySlice(limited),
		"avg_rating":   avgRating,
		"review_count": len(reviews),
	}
	s.cache.Set(ctx, cacheKey, result)
	return wireproto.Message(result)
}

func (s *Server) handleSubmitReview(sess *connSession, req wireproto.Message) wireproto.Message {
	gameName, _ := req["game_name"].(string)
	ratingVal, hasRating := req["rating"]
	comment, _ := req["comment"].(string)

	if gameName == "" || !hasRating {
		return errorMsg("Game name and rating required")
	}
	rating := floatField(ratingVal)
	if rating < 1 || rating > 5 {
		return errorMsg("Rating must be 1-5")
	}

	game, err := s.catalog.FindOne("Game", map[string]any{"name": gameName})
	if err != nil || game == nil {
		return errorMsg("Game not found")
	}

	doc, err := model.AsDoc(model.Review{
		GameID:     fmt.Sprint(game["_id"]),
		PlayerID:   sess.userID,
		PlayerName: sess.username,
		Rating:     int(rating),
		Comment:    comment,
	})
	if err != nil {
		return errorMsg(err.Error())
	}
	if _, err := s.catalog.Insert("Review", doc); err != nil {
		return errorMsg("Failed to submit review")
	}

	s.cache.Invalidate(context.Background(), cacheKeyGame(gameName))
	return wireproto.Message{"success": true, "message": "Review submitted"}
}

func floatField(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func toAnySlice(docs []map[string]any) []any {
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}
