package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const DefaultShadowingContext = "Pronunciation practice"

// ErrMissingWord is returned when a word of the day reply has no Word line.
var ErrMissingWord = errors.New("reply names no word")

type WordCard struct {
	Word        string
	Definition  string
	Translation string
	Example     string
}

type Mission struct {
	Title string
	Task  string
	Tip   string
}

type ShadowingTask struct {
	Context  string
	Sentence string
}

// Service turns raw provider text into typed learning content.
type Service struct {
	provider Provider
	language string
}

func NewService(provider Provider, translationLanguage string) *Service {
	return &Service{provider: provider, language: translationLanguage}
}

// LookupWord explains word. The returned card keeps word as typed by the user;
// fields the reply does not carry are left blank.
func (s *Service) LookupWord(ctx context.Context, word string) (WordCard, error) {
	text, err := s.provider.Generate(ctx, TaskLookupWord, map[string]string{
		ParamWord:     word,
		ParamLanguage: s.language,
	})
	if err != nil {
		return WordCard{}, fmt.Errorf("lookup %q: %w", word, err)
	}
	card := s.wordCard(text)
	card.Word = word
	return card, nil
}

// WordOfDay fails with ErrMissingWord when the reply names no word.
func (s *Service) WordOfDay(ctx context.Context) (WordCard, error) {
	text, err := s.provider.Generate(ctx, TaskWordOfDay, map[string]string{ParamLanguage: s.language})
	if err != nil {
		return WordCard{}, fmt.Errorf("word of the day: %w", err)
	}
	card := s.wordCard(text)
	if card.Word == "" {
		return WordCard{}, fmt.Errorf("word of the day: %w", ErrMissingWord)
	}
	return card, nil
}

func (s *Service) JournalQuestion(ctx context.Context) (string, error) {
	text, err := s.provider.Generate(ctx, TaskJournalPrompt, nil)
	if err != nil {
		return "", fmt.Errorf("journal prompt: %w", err)
	}
	question := cleanLine(text)
	if question == "" {
		return "", fmt.Errorf("journal prompt: %w", ErrEmptyResponse)
	}
	return question, nil
}

func (s *Service) WeeklyMission(ctx context.Context) (Mission, error) {
	text, err := s.provider.Generate(ctx, TaskWeeklyMission, nil)
	if err != nil {
		return Mission{}, fmt.Errorf("weekly mission: %w", err)
	}
	fields := ParseFields(text, missionFields)
	return Mission{Title: fields["title"], Task: fields["task"], Tip: fields["tip"]}, nil
}

// ShadowingTask falls back to the whole reply when no Sentence line is found.
func (s *Service) ShadowingTask(ctx context.Context) (ShadowingTask, error) {
	text, err := s.provider.Generate(ctx, TaskShadowingSentence, nil)
	if err != nil {
		return ShadowingTask{}, fmt.Errorf("shadowing sentence: %w", err)
	}
	fields := ParseFields(text, shadowingFields)
	task := ShadowingTask{Context: fields["context"], Sentence: fields["sentence"]}
	if task.Sentence == "" {
		task.Sentence = strings.TrimSpace(text)
	}
	if task.Sentence == "" {
		return ShadowingTask{}, fmt.Errorf("shadowing sentence: %w", ErrEmptyResponse)
	}
	if task.Context == "" {
		task.Context = DefaultShadowingContext
	}
	return task, nil
}

func (s *Service) AnalyzeVoice(ctx context.Context, path, expected string) (string, error) {
	feedback, err := s.provider.AnalyzeAudio(ctx, path, expected)
	if err != nil {
		return "", fmt.Errorf("analyze voice: %w", err)
	}
	return feedback, nil
}

func (s *Service) wordCard(text string) WordCard {
	fields := ParseFields(text, wordFields(s.language))
	return WordCard{
		Word:        fields["word"],
		Definition:  fields["definition"],
		Translation: fields["translation"],
		Example:     fields["example"],
	}
}
