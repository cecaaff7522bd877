package usecase

import (
	"fmt"
	"strings"

	"github.com/relistco/relist-server/internal/entity"
)

// All user-facing copy lives here so the flow code reads as logic, not prose.

const (
	replyGreeting = "Hi! I'm the Relist assistant — I help you list your designer pieces for resale over text.\n\nDo you already have a Relist account? (yes/no)"

	replyAccountCheck = "Do you already have a Relist account? (yes/no)"

	replyAskExistingEmail = "Great — what's the email on your account?"

	replyAskNewEmail = "Welcome! What email should we set your account up with?"

	replyAskVerifyEmail = "For security, please confirm the email on your account."

	replyWrongEmail = "Hmm, that doesn't match what we have on file. Try again?"

	replyNotAnEmail = "That doesn't look like an email address. Try something like name@example.com."

	replyTooManyAttempts = "That didn't match 3 times, so let's start over.\n\nDo you already have a Relist account? (yes/no)"

	replyRateLimited = "Too many verification attempts for now. Please try again in about an hour."

	replyMenu = "What would you like to do?\n1. SELL — list an item\n2. STATUS — check your current listing\n3. HELP\n4. LOGOUT"

	replyHelp = "Text SELL to list an item, STATUS for your current draft, MENU for options, or CANCEL to drop a draft in progress."

	replyLoggedOut = "You've been signed out. Text anything to start again."

	replyStopped = "You're unsubscribed and won't hear from us again. Text START to come back."

	replyDidntUnderstand = "Sorry, I didn't catch that."

	replyDraftChoice = "You already have a listing in progress%s. Want to CONTINUE it or START FRESH?"

	replyAskDetails = "Anything else buyers should know — flaws, alterations, original price? Or reply SKIP."

	replyCancelled = "No problem, I've discarded that listing.\n\n" + replyMenu

	replySubmitFailed = "Something went wrong sending your listing for review — nothing was lost. Reply CONFIRM to try again."

	replySubmitted = "Done! Your listing is in review — we'll email you when it goes live. 🎉\n\n" + replyMenu

	replyEditChoice = "What should we fix?\n1. DETAILS — redo the item info\n2. PHOTOS — replace the photos\n3. PRICE — change the price\nOr reply BACK."

	replySomethingWrong = "Something went wrong on our side. Let's go back to the menu.\n\n" + replyMenu
)

var fieldPrompts = map[entity.Field]string{
	entity.FieldDesigner:  "Who's the designer? (e.g. Sana Safinaz, Élan)",
	entity.FieldItemType:  "What's the item — kurta, 2-piece, 3-piece suit, lehenga?",
	entity.FieldSize:      "What size is it?",
	entity.FieldCondition: "What condition is it in — new with tags, like new, gently used?",
	entity.FieldPrice:     "What price are you asking? (e.g. $85)",
}

// numbered fallback once the confusion counter trips: same questions, but as
// an explicit menu the user can answer by example.
var fieldFallbacks = map[entity.Field]string{
	entity.FieldDesigner:  "Let's try it this way — reply with just the designer name:\n1. Sana Safinaz\n2. Khaadi\n3. Élan\n4. Other (type the name)",
	entity.FieldItemType:  "Reply with a number for the item type:\n1. Kurta\n2. 2-piece\n3. 3-piece suit\n4. Lehenga\n5. Other (type it)",
	entity.FieldSize:      "Reply with a number for the size:\n1. XS\n2. S\n3. M\n4. L\n5. XL",
	entity.FieldCondition: "Reply with a number for the condition:\n1. New with tags\n2. Like new\n3. Gently used\n4. Well loved",
	entity.FieldPrice:     "Reply with just a number for your asking price, like 85.",
}

func promptFor(f entity.Field, confused bool) string {
	if confused {
		return fieldFallbacks[f]
	}
	return fieldPrompts[f]
}

func photoPrompt(d *entity.Draft) string {
	remaining := entity.MinPhotos - d.PhotoCount()
	if remaining <= 0 {
		return ""
	}
	noun := "photos"
	if remaining == 1 {
		noun = "photo"
	}
	if d.PhotoCount() == 0 {
		return fmt.Sprintf("Now send me at least %d photos — include one of the brand tag if you can.", entity.MinPhotos)
	}
	return fmt.Sprintf("Got it — %d more %s to go.", remaining, noun)
}

func fieldLabel(f entity.Field) string {
	switch f {
	case entity.FieldItemType:
		return "item"
	default:
		return strings.ReplaceAll(string(f), "_", " ")
	}
}

// statusSummary is the pure-read answer to "what did I list so far".
func statusSummary(d *entity.Draft) string {
	var b strings.Builder
	b.WriteString("Here's your listing so far:\n")
	for _, f := range entity.FieldPriority {
		v := d.FieldValue(f)
		if v == "" {
			v = "—"
		}
		fmt.Fprintf(&b, "• %s: %s\n", titled(fieldLabel(f)), v)
	}
	if d.Details != "" {
		fmt.Fprintf(&b, "• Details: %s\n", d.Details)
	}
	fmt.Fprintf(&b, "• Photos: %d of %d", d.PhotoCount(), entity.MinPhotos)

	if missing := d.MissingRequired(); len(missing) > 0 {
		labels := make([]string, len(missing))
		for i, f := range missing {
			labels[i] = fieldLabel(f)
		}
		fmt.Fprintf(&b, "\nStill need: %s.", strings.Join(labels, ", "))
	}
	return b.String()
}

func titled(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func confirmSummary(d *entity.Draft) string {
	return fmt.Sprintf(
		"Ready to submit! 📋\n• Designer: %s\n• Item: %s\n• Size: %s\n• Condition: %s\n• Price: %s\n• Photos: %d\n\nReply CONFIRM to send it for review, EDIT to change something, or CANCEL.",
		d.Designer, d.ItemType, d.Size, d.Condition, entity.FormatPrice(d.PriceCents), d.PhotoCount(),
	)
}

func draftChoicePrompt(d *entity.Draft) string {
	hint := ""
	if d.Designer != "" {
		hint = fmt.Sprintf(" (%s %s)", d.Designer, d.ItemType)
	}
	return fmt.Sprintf(replyDraftChoice, hint)
}
