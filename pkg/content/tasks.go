package content

import (
	"fmt"
	"strings"
	"text/template"
)

// Task names a generation request understood by the provider.
type Task string

const (
	TaskLookupWord        Task = "lookup_word"
	TaskWordOfDay         Task = "word_of_day"
	TaskJournalPrompt     Task = "journal_prompt"
	TaskWeeklyMission     Task = "weekly_mission"
	TaskShadowingSentence Task = "shadowing_sentence"
	TaskVoiceFeedback     Task = "voice_feedback"
	TaskShadowingFeedback Task = "shadowing_feedback"
)

// Params keys.
const (
	ParamWord          = "word"
	ParamLanguage      = "language"
	ParamTranscription = "transcription"
	ParamExpected      = "expected"
)

const plainTextRule = "Reply in plain text only, without markdown, bold or italics."

var prompts = map[Task]*template.Template{
	TaskLookupWord: mustPrompt(TaskLookupWord, `Explain the English word "{{.word}}" for an international business student.
Keep the definition to one or two short sentences, give a {{.language}} translation and one practical example sentence.
` + plainTextRule + `
Answer with exactly these lines:
Definition: <definition>
Translation: <{{.language}} translation>
Example: <example sentence>`),

	TaskWordOfDay: mustPrompt(TaskWordOfDay, `Pick one useful, interesting business English word for an intermediate or advanced learner.
` + plainTextRule + `
Answer with exactly these lines:
Word: <word>
Definition: <definition>
Translation: <{{.language}} translation>
Example: <example sentence>`),

	TaskJournalPrompt: mustPrompt(TaskJournalPrompt, `Write one short reflection question for a student's evening journal about leadership, learning, challenges or gratitude.
Use fewer than fifteen words. ` + plainTextRule + ` Return only the question.`),

	TaskWeeklyMission: mustPrompt(TaskWeeklyMission, `Invent a practical real-world English mission for this week for an intermediate or advanced learner.
` + plainTextRule + `
Answer with exactly these lines:
Title: <mission title>
Task: <one concrete task, for example "order coffee using three adjectives">
Tip: <one helpful tip>`),

	TaskShadowingSentence: mustPrompt(TaskShadowingSentence, `Give one memorable sentence of natural spoken English for pronunciation shadowing, ten to fifteen words long.
It may come from a film, a TV show, a famous quote or a current topic.
` + plainTextRule + `
Answer with exactly these lines:
Context: <where the sentence comes from>
Sentence: <the sentence>`),

	TaskVoiceFeedback: mustPrompt(TaskVoiceFeedback, `You are an encouraging English speaking coach. A learner sent a voice note; this is its transcription:
"{{.transcription}}"
Comment on grammar, word choice and fluency, list the words worth practising and give a score from 0 to 100.
` + plainTextRule),

	TaskShadowingFeedback: mustPrompt(TaskShadowingFeedback, `You are an encouraging pronunciation coach. The learner tried to repeat this sentence:
"{{.expected}}"
Their attempt was transcribed as:
"{{.transcription}}"
Give a score from 0 to 100, say what went well, list the words to improve with a pronunciation hint and finish with one tip for rhythm and stress.
` + plainTextRule),
}

func mustPrompt(task Task, text string) *template.Template {
	return template.Must(template.New(string(task)).Option("missingkey=zero").Parse(text))
}

// Prompt renders the prompt of task with params.
func Prompt(task Task, params map[string]string) (string, error) {
	tmpl, ok := prompts[task]
	if !ok {
		return "", fmt.Errorf("unknown content task %q", task)
	}
	if params == nil {
		params = map[string]string{}
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, params); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", task, err)
	}
	return b.String(), nil
}
