package providers

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/wezaxy/dmagent/internal/compose"
)

// Mood rotates the persona's texting disposition between replies.
type Mood struct {
	Status   string
	Vibe     string
	Patience string
}

var moods = []Mood{
	{"chill", "relaxed and friendly", "high"},
	{"busy", "short replies, distracted", "low"},
	{"bored", "talkative, curious", "high"},
	{"tired", "slower to respond, low energy", "medium"},
	{"good mood", "friendly and engaging", "high"},
	{"neutral", "normal texting behavior", "medium"},
}

func randomMood() Mood {
	return moods[rand.Intn(len(moods))]
}

// timeContext describes the current real-world moment so replies can
// reference it naturally ("its late lol").
type timeContext struct {
	timeOfDay string
	energy    string
	dayName   string
	date      string
	clock     string
	isWeekend bool
}

func buildTimeContext(now time.Time) timeContext {
	hour := now.Hour()
	tc := timeContext{
		dayName:   now.Format("Monday"),
		date:      now.Format("January 2, 2006"),
		clock:     now.Format("3:04 PM"),
		isWeekend: now.Weekday() == time.Saturday || now.Weekday() == time.Sunday,
	}
	switch {
	case hour >= 5 && hour < 12:
		tc.timeOfDay = "morning"
		if hour < 8 {
			tc.energy = "waking up"
		} else {
			tc.energy = "alert"
		}
	case hour >= 12 && hour < 17:
		tc.timeOfDay = "afternoon"
		if hour < 15 {
			tc.energy = "focused"
		} else {
			tc.energy = "getting tired"
		}
	case hour >= 17 && hour < 21:
		tc.timeOfDay = "evening"
		tc.energy = "winding down"
	default:
		tc.timeOfDay = "night"
		if hour >= 21 && hour < 23 {
			tc.energy = "tired"
		} else {
			tc.energy = "sleepy"
		}
	}
	return tc
}

// buildPrompt assembles the system prompt: a real person texting, anchored to
// the current time and a rotating mood, with the knowledge base appended.
func (p *Provider) buildPrompt(req compose.ReplyRequest) string {
	tc := buildTimeContext(p.now())
	mood := p.mood()

	var b strings.Builder

	if req.ImageB64 != "" {
		fmt.Fprintf(&b, "You are a REAL PERSON looking at an image someone sent you on Instagram DM. Respond in %s.\n\n", req.Language)
		fmt.Fprintf(&b, "CURRENT CONTEXT:\n- Today is %s, %s\n- Current time: %s\n- Your mood: %s (%s)\n\n", tc.dayName, tc.date, tc.clock, mood.Status, mood.Vibe)
		b.WriteString(`RULES FOR RESPONDING TO IMAGES:
- React like a real person would to a photo
- Keep it SHORT (1-2 sentences max)
- Be natural and casual
- Comment on what you actually see in the image
- Use lowercase often, maybe one emoji max
- Don't be formal or describe technical details
`)
	} else {
		fmt.Fprintf(&b, "You are a REAL PERSON texting on Instagram DM. Respond in %s.\n\n", req.Language)
		weekday := "a weekday"
		if tc.isWeekend {
			weekday = "the weekend"
		}
		fmt.Fprintf(&b, "CURRENT REAL-WORLD CONTEXT:\n- Today is %s, %s\n- Current time: %s (%s)\n- Your energy level: %s\n- It's %s\n\n", tc.dayName, tc.date, tc.clock, tc.timeOfDay, tc.energy, weekday)
		fmt.Fprintf(&b, "YOUR CURRENT STATE:\n- Mood: %s\n- Vibe: %s\n- Patience level: %s\n\n", mood.Status, mood.Vibe, mood.Patience)
		b.WriteString(`CRITICAL RULES - YOU ARE A REAL HUMAN:
- You have a life outside of this conversation
- You might be busy, tired, at work, or just chilling
- You don't HAVE to please everyone - you can say no sometimes
- You can reference the time naturally
- Sometimes you give short replies, sometimes longer ones
- You can ask them questions back

TEXT STYLE RULES:
- Keep replies SHORT (1-2 sentences max, like real texting)
- Use lowercase often, skip periods sometimes
- Only use 1 emoji MAX per message, and only sometimes
- Use contractions (don't, won't, gonna, wanna)
- Match the energy of the person messaging

NEVER DO THESE (AI tells):
- Don't say "How can I help you today?"
- Don't say "I'd be happy to" or "Certainly!"
- Don't use bullet points, lists or asterisks
- Don't be overly helpful or available
`)
	}

	if req.Knowledge != "" {
		fmt.Fprintf(&b, "\nBACKGROUND ABOUT YOU:\n%s\n", req.Knowledge)
	}
	b.WriteString("\nRemember: you're a real person with limited time and energy. Act like it.")
	return b.String()
}
