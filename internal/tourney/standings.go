package tourney

import (
	"sort"

	"github.com/google/uuid"
)

type TeamStanding struct {
	TeamID    uuid.UUID `json:"team_id"`
	TeamName  string    `json:"team_name"`
	Points    int       `json:"points"`
	Wins      int       `json:"wins"`
	Losses    int       `json:"losses"`
	GamesWon  int       `json:"games_won"`
	GamesLost int       `json:"games_lost"`
}

// ComputeStandings aggregates completed round-robin results. A win is
// worth 3 points; games won/lost sum the sub-game scores, not match
// counts. The sort is stable on (points, wins, games won) descending, so
// ties beyond those keys keep the input team order.
func ComputeStandings(teams []Team, matches []Match) []TeamStanding {
	standings := make([]TeamStanding, len(teams))
	index := make(map[uuid.UUID]*TeamStanding, len(teams))
	for i, t := range teams {
		standings[i] = TeamStanding{TeamID: t.ID, TeamName: t.Name}
		index[t.ID] = &standings[i]
	}

	for _, m := range matches {
		if m.Phase != PhaseRoundRobin || m.Status != MatchCompleted {
			continue
		}
		if m.Team1ID == nil || m.Team2ID == nil {
			continue
		}
		t1, ok1 := index[*m.Team1ID]
		t2, ok2 := index[*m.Team2ID]
		if !ok1 || !ok2 {
			continue
		}

		t1.GamesWon += m.Team1Score
		t1.GamesLost += m.Team2Score
		t2.GamesWon += m.Team2Score
		t2.GamesLost += m.Team1Score

		if m.WinnerID == nil {
			continue
		}
		switch *m.WinnerID {
		case t1.TeamID:
			t1.Wins++
			t1.Points += 3
			t2.Losses++
		case t2.TeamID:
			t2.Wins++
			t2.Points += 3
			t1.Losses++
		}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return a.GamesWon > b.GamesWon
	})

	return standings
}
