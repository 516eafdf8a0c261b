package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("XML")
	require.NoError(t, err)
	assert.Equal(t, ModeXML, mode)

	mode, err = ParseMode("json")
	require.NoError(t, err)
	assert.Equal(t, ModeJSON, mode)

	_, err = ParseMode("yaml")
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
}

func TestTransform_XML(t *testing.T) {
	tpl, err := Parse(basicTemplate)
	require.NoError(t, err)

	out, err := Transform(tpl, ModeXML)
	require.NoError(t, err)

	assert.Equal(t, FormatXML, out.ResponseFormat)

	sys, ok := out.Section(RoleSystem)
	require.True(t, ok)
	assert.Contains(t, sys.Body, "You are a careful assistant.")
	assert.Contains(t, sys.Body, "<outputs>")
	assert.Contains(t, sys.Body, `<output name="answer">the model's answer</output>`)

	usr, ok := out.Section(RoleUser)
	require.True(t, ok)
	assert.Contains(t, usr.Body, `<input name="context">{{context}}</input>`)
	assert.Contains(t, usr.Body, `<input name="question">{{question}}</input>`)

	// Demonstrations sit after the instructions, before the first input
	fewshotAt := strings.Index(usr.Body, "{{_fewshot_}}")
	firstInputAt := strings.Index(usr.Body, `<input name=`)
	require.GreaterOrEqual(t, fewshotAt, 0)
	assert.Less(t, fewshotAt, firstInputAt)

	// Original is untouched
	assert.Equal(t, FormatText, tpl.ResponseFormat)
	origUser, _ := tpl.Section(RoleUser)
	assert.NotContains(t, origUser.Body, "<input")
}

func TestTransform_JSON(t *testing.T) {
	tpl, err := Parse(basicTemplate)
	require.NoError(t, err)

	out, err := Transform(tpl, ModeJSON)
	require.NoError(t, err)

	assert.Equal(t, FormatJSON, out.ResponseFormat)

	sys, ok := out.Section(RoleSystem)
	require.True(t, ok)
	assert.Contains(t, sys.Body, "JSON")
	assert.Contains(t, sys.Body, "answer")
	assert.True(t, out.HasPlaceholder(FewshotPlaceholder))
}

func TestTransform_Idempotent(t *testing.T) {
	tpl, err := Parse(basicTemplate)
	require.NoError(t, err)

	for _, mode := range []Mode{ModeXML, ModeJSON} {
		once, err := Transform(tpl, mode)
		require.NoError(t, err)
		twice, err := Transform(once, mode)
		require.NoError(t, err)

		onceText, err := once.Text()
		require.NoError(t, err)
		twiceText, err := twice.Text()
		require.NoError(t, err)
		assert.Equal(t, onceText, twiceText, "mode %s", mode)
	}
}

func TestTransform_RoundTripsThroughParse(t *testing.T) {
	tpl, err := Parse(basicTemplate)
	require.NoError(t, err)

	out, err := Transform(tpl, ModeXML)
	require.NoError(t, err)

	text, err := out.Text()
	require.NoError(t, err)

	again, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, FormatXML, again.ResponseFormat)
	assert.Equal(t, out.Inputs, again.Inputs)
	assert.Equal(t, out.Outputs, again.Outputs)
}

func TestTransform_CreatesSystemSection(t *testing.T) {
	tpl, err := Parse(`---
model: m
inputs:
  q: the question
outputs:
  answer: the answer
---
<user>
{{q}}
</user>
`)
	require.NoError(t, err)

	out, err := Transform(tpl, ModeXML)
	require.NoError(t, err)

	require.NotEmpty(t, out.Sections)
	assert.Equal(t, RoleSystem, out.Sections[0].Role)
	assert.Contains(t, out.Sections[0].Body, "<outputs>")
}

func TestTransform_CreatesUserSection(t *testing.T) {
	tpl, err := Parse(`---
model: m
outputs:
  answer: the answer
---
<system>
Summarize the conversation so far.
</system>
`)
	require.NoError(t, err)

	out, err := Transform(tpl, ModeXML)
	require.NoError(t, err)

	usr, ok := out.Section(RoleUser)
	require.True(t, ok)
	assert.Equal(t, "{{_fewshot_}}", usr.Body)
}

func TestTransform_KeepsSingleDelimiterStyle(t *testing.T) {
	tpl, err := Parse(`---
model: m
inputs:
  q: the question
outputs:
  answer: the answer
---
<user>
Answer carefully.

{q}
</user>
`)
	require.NoError(t, err)
	require.Equal(t, DelimiterSingle, tpl.Delimiter)

	out, err := Transform(tpl, ModeXML)
	require.NoError(t, err)

	usr, _ := out.Section(RoleUser)
	assert.Contains(t, usr.Body, "{_fewshot_}")
	assert.Contains(t, usr.Body, `<input name="q">{q}</input>`)
	assert.NotContains(t, usr.Body, "{{")
}

func TestTransform_NoInputReferences(t *testing.T) {
	tpl, err := Parse(`---
model: m
outputs:
  answer: the answer
---
<user>
Describe what you see.
</user>
`)
	require.NoError(t, err)

	out, err := Transform(tpl, ModeJSON)
	require.NoError(t, err)

	usr, _ := out.Section(RoleUser)
	assert.True(t, strings.HasSuffix(usr.Body, "{{_fewshot_}}"))
}

func TestTransform_Errors(t *testing.T) {
	noOutputs, err := Parse(`---
model: m
inputs:
  q: the question
---
<user>
{{q}}
</user>
`)
	require.NoError(t, err)

	_, err = Transform(noOutputs, ModeXML)
	require.Error(t, err)
	fe, ok := AsFormatError(err)
	require.True(t, ok)
	assert.Equal(t, "outputs", fe.Field)

	withOutputs, err := Parse(basicTemplate)
	require.NoError(t, err)
	_, err = Transform(withOutputs, Mode("yaml"))
	require.Error(t, err)
	fe, ok = AsFormatError(err)
	require.True(t, ok)
	assert.Equal(t, "mode", fe.Field)
}
