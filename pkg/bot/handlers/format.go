package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tg-english-coach/pkg/bot/schedule"
	"github.com/smith3v/tg-english-coach/pkg/bot/session"
	"github.com/smith3v/tg-english-coach/pkg/content"
	"github.com/smith3v/tg-english-coach/pkg/db"
)

const (
	msgLookupFailed     = "Could not find that word."
	msgSaved            = "✅ Saved!"
	msgAlreadySaved     = "⚠️ Word already in flashcards!"
	msgSaveFailed       = "❌ Could not save the flashcard. Please try again later."
	msgJournalSaved     = "✅ Journal entry saved!"
	msgJournalFailed    = "❌ Could not save your journal entry. Please send it again."
	msgMissionDone      = "🎉 Mission accomplished! Great job!"
	msgMissionFailed    = "❌ Could not record your mission. Please try again later."
	msgHint             = "Just send a word to look up, or use /help."
	msgAnalyzing        = "🎧 Analyzing..."
	msgAnalyzeFailed    = "❌ Could not analyze your recording. Please try again."
	msgNoFlashcards     = "No flashcards yet! Lookup some words first."
	msgReviewComplete   = "🎉 Review complete!"
	msgSessionExpired   = "⌛ Session expired. Start a new one with /review."
	msgNoJournal        = "📝 No journal entries yet! Use /journal to start writing."
	msgWordOfDayFailed  = "⚠️ Could not pick a word of the day right now. Try /wod again later."
	msgWordOfDayNoWord  = "⚠️ Today's word came back without a word. Try /wod again."
	msgMissionGenFailed = "⚠️ Could not prepare this week's mission. Try /mission again later."
	msgShadowingFailed  = "⚠️ Could not prepare a shadowing sentence. Try /shadowing again later."
	msgGenericFailure   = "Something went wrong. Please try again later."
	msgNothingToExport  = "You have no flashcards to export."
	msgExportFailed     = "Failed to export your flashcards. Please try again later."
	msgNotCSV           = "The uploaded file is not a CSV. Please upload a valid CSV file."
	msgImportReadFailed = "Failed to read the CSV file. Please ensure it is in the correct format."
	msgImportEmpty      = "No valid flashcards found to import."
	msgImportFailed     = "Failed to import your flashcards. Please try again later."
	msgImportTooLarge   = "The file is too large. Please upload a CSV under 1 MB."

	shadowingFeedbackTitle = "✅ Shadowing Feedback"
	voiceAnalysisTitle     = "🎙️ Voice Analysis"
	missionPhrase          = "mission complete"
)

var journalQuestions = []string{
	"1️⃣ Three things you are grateful for or did well today",
	"2️⃣ Three things you think you can improve",
	"3️⃣ Three things you plan to do tomorrow",
}

const helpText = "Commands:\n" +
	"/wod - word of the day now\n" +
	"/mission - this week's mission\n" +
	"/journal - evening reflection now\n" +
	"/shadowing - pronunciation practice now\n" +
	"/review - flashcard review\n" +
	"/memory - a random past journal entry\n" +
	"/stats - your progress\n" +
	"/export - download your flashcards as CSV\n" +
	"/help - this message\n\n" +
	"Send any word to look it up, or a voice note for feedback. " +
	"Upload a CSV (word, definition, translation, example) to import flashcards."

func formatWelcome(times schedule.Times, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("👋 Welcome to English Coach!\n\n")
	fmt.Fprintf(&b, "Daily schedule (%s):\n", loc.String())
	fmt.Fprintf(&b, "☀️ %s - Word of the Day\n", times[schedule.KindWordOfDay])
	fmt.Fprintf(&b, "🚀 %s - Weekly Mission\n", times[schedule.KindWeeklyMission])
	fmt.Fprintf(&b, "✍️ %s - Micro-Journal\n", times[schedule.KindJournalPrompt])
	fmt.Fprintf(&b, "🎤 %s - Shadowing Practice\n\n", times[schedule.KindShadowing])
	b.WriteString("🔍 Send any word to look it up and save it as a flashcard.\n")
	b.WriteString("🎙️ Send a voice note for pronunciation feedback.\n")
	b.WriteString("🧠 /review your flashcards, 📊 /stats for progress.\n\n")
	b.WriteString("Let's start! Send me a word to define.")
	return b.String()
}

// formatWordCard renders a card in MarkdownV2.
func formatWordCard(title string, card content.WordCard, translationLabel string) string {
	var b strings.Builder
	if title != "" {
		b.WriteString(bot.EscapeMarkdown(title))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "*%s*\n\n", bot.EscapeMarkdown(strings.ToUpper(card.Word)))
	if card.Definition != "" {
		fmt.Fprintf(&b, "*Definition:* %s\n", bot.EscapeMarkdown(card.Definition))
	}
	if card.Translation != "" {
		fmt.Fprintf(&b, "*%s:* %s\n", bot.EscapeMarkdown(translationLabel), bot.EscapeMarkdown(card.Translation))
	}
	if card.Example != "" {
		fmt.Fprintf(&b, "*Example:* _%s_\n", bot.EscapeMarkdown(card.Example))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatMission(m content.Mission) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚀 *Weekly Mission: %s*\n\n", bot.EscapeMarkdown(m.Title))
	if m.Task != "" {
		fmt.Fprintf(&b, "*Task:* %s\n\n", bot.EscapeMarkdown(m.Task))
	}
	if m.Tip != "" {
		fmt.Fprintf(&b, "*💡 Tip:* %s\n\n", bot.EscapeMarkdown(m.Tip))
	}
	b.WriteString(bot.EscapeMarkdown(`Reply with "Mission Complete" when done!`))
	return b.String()
}

func formatJournalPrompt(question string) string {
	var b strings.Builder
	b.WriteString("✍️ Daily Reflection\n\nPlease answer these questions:\n\n")
	for _, q := range journalQuestions {
		b.WriteString(q)
		b.WriteString("\n")
	}
	if question != "" {
		b.WriteString("\n💭 Bonus: ")
		b.WriteString(question)
		b.WriteString("\n")
	}
	b.WriteString("\nReply with your answers to save your journal entry!")
	return b.String()
}

func formatShadowing(task content.ShadowingTask) string {
	return fmt.Sprintf("🎤 *Daily Shadowing*\n\n📰 *Context:* %s\n*Say this:* _%s_\n\nListen to the voice note, then send your own recording\\.",
		bot.EscapeMarkdown(task.Context), bot.EscapeMarkdown(task.Sentence))
}

func formatReviewFront(review session.Review) string {
	card := review.Card()
	return fmt.Sprintf("🧠 *Review \\(%d/%d\\)*\n\nWord: *%s*\n\n_Think of the meaning\\.\\.\\._",
		review.Position(), len(review.Deck), bot.EscapeMarkdown(card.Word))
}

func formatReviewBack(card db.Flashcard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 *%s*\n\n", bot.EscapeMarkdown(card.Word))
	if card.Definition != "" {
		fmt.Fprintf(&b, "📖 %s\n", bot.EscapeMarkdown(card.Definition))
	}
	if card.Translation != "" {
		fmt.Fprintf(&b, "🌐 %s\n", bot.EscapeMarkdown(card.Translation))
	}
	if card.Example != "" {
		fmt.Fprintf(&b, "📝 _%s_\n", bot.EscapeMarkdown(card.Example))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatMemory(entry db.JournalEntry) string {
	date := time.Time(entry.EntryDate).Format("2006-01-02")
	return fmt.Sprintf("📖 Memory from %s\n\n%s\n\nUse /memory to see another random entry!", date, entry.Entry)
}

func formatStats(count int64) string {
	if count == 1 {
		return "📊 You have 1 flashcard saved."
	}
	return fmt.Sprintf("📊 You have %d flashcards saved.", count)
}

const maxMessageRunes = 4096

// splitMessage cuts text into chunks of at most limit runes, breaking after a
// newline when one falls in the second half of a chunk.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 || len(chunks) == 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
