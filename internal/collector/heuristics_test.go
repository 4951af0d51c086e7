package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineTopic(t *testing.T) {
	cases := map[string]string{
		"Concerning public school funding":        "Education",
		"Enhancing K-12 education funding":        "Education",
		"Teacher certification requirements":      "Education",
		"Expanding mental health services":        "Healthcare",
		"Pharmacy benefit managers":               "Healthcare",
		"Rent stabilization measures":             "Housing",
		"Zoning reform for affordable housing":    "Housing",
		"Public transit expansion":                "Transportation",
		"Vehicle emissions standards":             "Transportation",
		"Clean energy standards":                  "Environment",
		"Water quality protection":                "Environment",
		"Crime prevention measures":               "Public Safety",
		"Firearm regulations":                     "Public Safety",
		"Property tax relief":                     "Tax & Revenue",
		"Budget stabilization":                    "Tax & Revenue",
		"Small business assistance":               "Business",
		"Employment protections":                  "Business",
		"Regulating artificial intelligence":      "Technology",
		"Cybersecurity standards":                 "Technology",
		"Concerning state agencies":               "General Government",
		"Miscellaneous administrative procedures": "General Government",
		"Concerning current procedures":           "General Government",
	}
	for title, want := range cases {
		assert.Equal(t, want, DetermineTopic(title), title)
	}
}

func TestDetermineCommittee(t *testing.T) {
	assert.Equal(t, "Education", DetermineCommittee("HB 1234", "Public school funding"))
	assert.Equal(t, "Education", DetermineCommittee("SB 5678", "Teacher certification"))
	assert.Equal(t, "Finance", DetermineCommittee("HB 1234", "Tax reform measures"))
	assert.Equal(t, "Ways & Means", DetermineCommittee("SB 5678", "Budget appropriations"))
	assert.Equal(t, "Transportation", DetermineCommittee("HB 1234", "Highway improvements"))
	assert.Equal(t, "Transportation", DetermineCommittee("SB 5678", "Transit funding"))
	assert.Equal(t, "State Government & Tribal Relations", DetermineCommittee("HB 1234", "Miscellaneous provisions"))
	assert.Equal(t, "State Government & Elections", DetermineCommittee("SB 5678", "General provisions"))
	assert.Equal(t, "State Government & Elections", DetermineCommittee("SJR 8201", "General provisions"))
}

func TestDeterminePriority(t *testing.T) {
	assert.Equal(t, "high", DeterminePriority("General provisions", true, false, ""))
	assert.Equal(t, "high", DeterminePriority("General provisions", false, true, ""))
	assert.Equal(t, "high", DeterminePriority("General bill about something", false, false, "passed"))
	assert.Equal(t, "high", DeterminePriority("Emergency response funding", false, false, ""))
	assert.Equal(t, "high", DeterminePriority("Education funding formula", false, false, ""))
	assert.Equal(t, "low", DeterminePriority("Technical corrections act", false, false, ""))
	assert.Equal(t, "low", DeterminePriority("Clarifying existing provisions", false, false, ""))
	assert.Equal(t, "low", DeterminePriority("Creating a study committee on parking", false, false, "prefiled"))
	assert.Equal(t, "medium", DeterminePriority("An ordinary bill about regulations", false, false, "prefiled"))
}

func TestDetermineStatusFromText(t *testing.T) {
	cases := map[string]string{
		"":                                   "prefiled",
		"Prefiled for introduction":          "prefiled",
		"Pre-filed":                          "prefiled",
		"First reading":                      "introduced",
		"Introduced and referred":            "introduced",
		"Referred to committee":              "committee",
		"In Committee Referred to Health":    "committee",
		"Passed Senate and House":            "passed",
		"Third reading, passed House":        "passed",
		"Signed by governor":                 "enacted",
		"Chapter 123, Laws of 2026":          "enacted",
		"Vetoed Governor vetoed entire bill": "vetoed",
		"Failed to pass":                     "failed",
		"Dead Bill failed in committee":      "failed",
		"Tabled indefinitely":                "failed",
		"H Approps":                          "introduced",
	}
	for text, want := range cases {
		assert.Equal(t, want, DetermineStatusFromText(text), text)
	}
}
