package engine

import "math/rand"

type Category struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DefaultGenre is the fallback when a room's configured genre has no
// category list.
const DefaultGenre = "rap"

var Categories = map[string][]Category{
	"rap": {
		{ID: "best_2000s_rap", Title: "Best 2000s Rap Song", Description: "Pick the greatest rap song from 2000-2009"},
		{ID: "most_toxic_lyrics", Title: "Most Toxic Lyrics", Description: "The pettiest, most savage lyrics ever written"},
		{ID: "no_skip_album", Title: "Song from No-Skip Album", Description: "Pick any song from an album with zero skips"},
		{ID: "best_feature", Title: "Best Feature Verse", Description: "When the feature completely stole the show"},
		{ID: "perfect_beat", Title: "Perfect Beat", Description: "The beat that makes you move involuntarily"},
		{ID: "best_diss_track", Title: "Ultimate Diss Track", Description: "The most devastating diss in rap history"},
		{ID: "comeback_anthem", Title: "Comeback Anthem", Description: "The song that proves they're back on top"},
		{ID: "underrated_gem", Title: "Underrated Gem", Description: "The song that deserves way more recognition"},
	},
	"pop": {
		{ID: "guilty_pleasure", Title: "Guilty Pleasure", Description: "The pop song you secretly love but won't admit"},
		{ID: "best_breakup_song", Title: "Best Breakup Song", Description: "The song that gets you through heartbreak"},
		{ID: "dance_floor_filler", Title: "Dance Floor Filler", Description: "Guaranteed to get everyone moving"},
		{ID: "road_trip_banger", Title: "Road Trip Banger", Description: "Windows down, volume up vibes"},
		{ID: "shower_song", Title: "Shower Song", Description: "The song you belt out in the shower"},
		{ID: "throwback_thursday", Title: "Throwback Thursday", Description: "Takes you right back to the good old days"},
	},
	"rock": {
		{ID: "best_guitar_solo", Title: "Best Guitar Solo", Description: "The solo that gives you goosebumps every time"},
		{ID: "workout_motivation", Title: "Workout Motivation", Description: "Gets you pumped to lift heavy things"},
		{ID: "concert_opener", Title: "Perfect Concert Opener", Description: "The song that would get the crowd hyped"},
		{ID: "driving_at_night", Title: "Driving at Night", Description: "Perfect soundtrack for late-night drives"},
	},
	"rnb": {
		{ID: "smooth_vibes", Title: "Smoothest Vibes", Description: "The song that's pure silk to your ears"},
		{ID: "love_song", Title: "Ultimate Love Song", Description: "Makes you believe in romance again"},
		{ID: "90s_rnb_classic", Title: "90s R&B Classic", Description: "From the golden era of R&B"},
	},
}

func randomCategory(rng *rand.Rand, genre string) Category {
	list := Categories[genre]
	if len(list) == 0 {
		list = Categories[DefaultGenre]
	}
	return list[rng.Intn(len(list))]
}
