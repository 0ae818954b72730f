package game_constants

// Catalog game ids. Every live session carries exactly one of these and is
// dispatched to the matching variant state machine.
const (
	GameWordIntruder = "one_word_unites"
	GameWordChain    = "word_association"
	GameStoryBuilder = "story_builder"
	GameQuickDraw    = "quick_draw"
)

// Scoring constants
const (
	IntruderEscapePoints   = 3 // intruder received zero votes
	IntruderCatchPoints    = 1 // per non-intruder who voted for the intruder
	WordChainMaxPoints     = 10
	WordChainMinPoints     = 1
	StoryPointsPerSentence = 5
	DrawGuessBonus         = 10 // fixed, no timing decay
)

// Hard platform bounds; catalog entries must stay inside these.
const (
	MinSessionPlayers = 2
	MaxSessionPlayers = 20
)

// Number of word pairs drawn per Word-Intruder round. One of them is picked
// at random as the round's pair.
const WordPairDrawCount = 3
