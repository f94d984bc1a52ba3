// Package envelope реализует разбор пользовательского ввода на (реплика,
// ситуация) и разбор структурированного конверта ответа модели
// **SITUATION:** ... **DIALOGUE:** "..." **AFFECTION LEVEL:** n.
package envelope

import (
	"strings"
)

// InputDelimiter разделяет реплику и ситуацию в пользовательском вводе.
const InputDelimiter = "**"

// Маркеры конверта ответа модели.
const (
	markerSituation = "**SITUATION:**"
	markerDialogue  = "**DIALOGUE:**"
	markerAffection = "**AFFECTION LEVEL:**"
)

// Input - разобранный пользовательский ввод.
type Input struct {
	Dialogue  string
	Situation string
}

// IsEmpty reports whether both parsed fields are empty (a no-op send).
func (in Input) IsEmpty() bool {
	return in.Dialogue == "" && in.Situation == ""
}

// SplitInput разбирает сырой ввод: текст до первого "**" - реплика, после -
// ситуация. Без разделителя весь ввод считается репликой.
func SplitInput(raw string) Input {
	idx := strings.Index(raw, InputDelimiter)
	if idx < 0 {
		return Input{Dialogue: strings.TrimSpace(raw)}
	}
	return Input{
		Dialogue:  strings.TrimSpace(raw[:idx]),
		Situation: strings.TrimSpace(raw[idx+len(InputDelimiter):]),
	}
}

// ComposeContent собирает полезную нагрузку отправки: реплика плюс
// аннотация ситуации, если она есть.
func ComposeContent(in Input) string {
	if in.Situation == "" {
		return in.Dialogue
	}
	return in.Dialogue + "\n\n" + markerSituation + " " + in.Situation
}

// Шаблоны локального ответа на случай недоступности модели.
var fallbackTemplates = []string{
	markerSituation + " %s glances at you with a thoughtful expression. " + markerDialogue + " \"Hm. Tell me more about that.\" " + markerAffection + " 5",
	markerSituation + " %s pauses for a moment, considering your words. " + markerDialogue + " \"I see... go on, I am listening.\" " + markerAffection + " 5",
	markerSituation + " %s tilts their head slightly. " + markerDialogue + " \"That is interesting. What happened next?\" " + markerAffection + " 5",
}

// FallbackReply возвращает шаблонный структурированный ответ от имени
// персонажа. Выбор шаблона детерминирован по тексту ввода.
func FallbackReply(aiName, input string) string {
	var sum int
	for _, r := range input {
		sum += int(r)
	}
	tpl := fallbackTemplates[sum%len(fallbackTemplates)]
	return strings.ReplaceAll(tpl, "%s", aiName)
}

// Reply - размеченный результат разбора ответа модели.
// Либо Structured со своими полями, либо Unstructured с исходным текстом.
type Reply struct {
	Structured bool
	Situation  string
	Dialogue   string
	Text       string // исходный текст, только для неструктурированного ответа
}

// ParseReply разбирает текст ответа модели. Ответ считается структурированным,
// только если присутствует маркер **DIALOGUE:**; реплика тянется до маркера
// **AFFECTION LEVEL:** или до конца текста. Любой другой текст возвращается
// как Unstructured без попыток угадывания.
func ParseReply(text string) Reply {
	upper := strings.ToUpper(text)

	diaIdx := strings.Index(upper, markerDialogue)
	if diaIdx < 0 {
		return Reply{Text: text}
	}

	var situation string
	if sitIdx := strings.Index(upper, markerSituation); sitIdx >= 0 && sitIdx < diaIdx {
		situation = strings.TrimSpace(text[sitIdx+len(markerSituation) : diaIdx])
	}

	dialogue := text[diaIdx+len(markerDialogue):]
	if affIdx := strings.Index(strings.ToUpper(dialogue), markerAffection); affIdx >= 0 {
		dialogue = dialogue[:affIdx]
	}
	dialogue = strings.TrimSpace(dialogue)
	dialogue = strings.Trim(dialogue, `"`)

	return Reply{
		Structured: true,
		Situation:  situation,
		Dialogue:   strings.TrimSpace(dialogue),
	}
}
