package plan

// Plan 订阅档位，仅用于展示升级提示，不涉及计费。
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Period      string   `json:"period"`
	DailyChats  int      `json:"dailyChats"` // -1 表示不限
	Features    []string `json:"features"`
	Recommended bool     `json:"recommended,omitempty"`
}

const Unlimited = -1

// Catalog returns the tiers in display order.
func Catalog() []Plan {
	return []Plan{
		{
			ID:         "free",
			Name:       "Free",
			Price:      "$0",
			Period:     "month",
			DailyChats: 5,
			Features:   []string{"5 chats per day", "1 AI persona", "Text-only interaction"},
		},
		{
			ID:         "plus",
			Name:       "Plus",
			Price:      "$10",
			Period:     "month",
			DailyChats: 20,
			Features: []string{
				"20 chats per day",
				"Up to 3 AI personas",
				"Save & resume conversations",
				"Upload 30-60s voice clip for voice cloning",
				"Text-to-voice playback",
			},
			Recommended: true,
		},
		{
			ID:         "premium",
			Name:       "Premium",
			Price:      "$25",
			Period:     "month",
			DailyChats: Unlimited,
			Features: []string{
				"Unlimited chats",
				"Unlimited personas",
				"More daily voice responses",
				"Priority support",
				"Exclusive access to upcoming avatar video feature",
			},
		},
	}
}
