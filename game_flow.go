package main

import (
	"context"
	"fmt"
	"log"
)

// RunGame plays one game from setup to a definite winner. Each round is one
// night followed by one day, with a win check between every phase, so a side
// that reaches its win condition at night is never granted another day. The
// only error case is a broken setup; everything after setup recovers locally
// and the game always terminates.
func (g *MafiaGame) RunGame(ctx context.Context, gameNumber int) (*GameResult, error) {
	if err := g.setupGame(gameNumber); err != nil {
		return nil, err
	}
	log.Printf("Game %d (%s): starting, language=%s", gameNumber, g.gameID, g.cfg.Language)

	var winner string
	for {
		var over bool
		if over, winner = g.checkGameOver(); over {
			break
		}

		g.executeNightPhase(ctx)

		if over, winner = g.checkGameOver(); over {
			break
		}

		g.executeDayPhase(ctx)
	}

	// A round that ended at night has not been closed by a day phase; keep its
	// partial record. A fresh, untouched round record is dropped.
	if len(g.current.Messages) > 0 || len(g.current.Actions) > 0 || len(g.current.Eliminations) > 0 {
		g.rounds = append(g.rounds, g.current)
	}

	result := &GameResult{
		GameID:       g.gameID,
		GameNumber:   gameNumber,
		Winner:       winner,
		RoundsPlayed: len(g.rounds),
		Rounds:       g.rounds,
		Participants: g.participants(),
		Language:     g.cfg.Language,
	}
	result.CriticReview = g.generateCriticReview(ctx, winner)

	g.publish(EventGameOver, fmt.Sprintf("Game %d over after %d rounds. Winner: %s", gameNumber, result.RoundsPlayed, winner))
	log.Printf("Game %d (%s): winner=%s rounds=%d", gameNumber, g.gameID, winner, result.RoundsPlayed)
	return result, nil
}
