package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBarrioPrado  = "El Prado"
	testBarrioCentro = "Centro"
	testCatHurto     = "Hurto"
	testCatHomicidio = "Homicidio"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newIncident(id, barrio, cat, sex, date, hour string, flags ...SocialFlag) Incident {
	inc := Incident{
		ID:           id,
		Category:     cat,
		RawDate:      date,
		TimeOfDay:    hour,
		Neighborhood: barrio,
		Sex:          sex,
		Flags:        map[SocialFlag]bool{},
		HasLocation:  true,
	}
	if d, ok := ParseDate(date); ok {
		inc.Date = d
	}
	for _, f := range SocialFlags {
		inc.Flags[f] = false
	}
	for _, f := range flags {
		inc.Flags[f] = true
	}
	return inc
}

func testDataset() Dataset {
	return Dataset{
		Incidents: []Incident{
			newIncident("1", testBarrioPrado, testCatHurto, SexMale, "2024-01-05", "23:45", FlagLGBTI),
			newIncident("2", testBarrioPrado, testCatHomicidio, SexFemale, "2024-01-12", "14:00"),
			newIncident("3", testBarrioCentro, testCatHurto, SexFemale, "2024-02-01", "08:15:00", FlagLGBTI, FlagStreetDweller),
			newIncident("4", testBarrioCentro, testCatHurto, SexMale, "no-date", "22:00", FlagStreetDweller),
			newIncident("5", "Unknown", testCatHomicidio, "", "2024-03-10", "bad"),
			newIncident("6", testBarrioCentro, testCatHomicidio, SexMale, "2024-03-11", "00:05", FlagLGBTI, FlagStreetDweller),
		},
		HasTimeOfDay: true,
		Columns: map[SocialFlag]bool{
			FlagStreetDweller: true,
			FlagSexWork:       true,
			FlagLGBTI:         true,
			FlagEthnicGroup:   true,
		},
	}
}

func ids(incidents []Incident) []string {
	out := make([]string, len(incidents))
	for i, inc := range incidents {
		out[i] = inc.ID
	}
	return out
}

func TestApply_NoCriteriaDropsOnlyUnparseable(t *testing.T) {
	result := Apply(testDataset(), FilterCriteria{})

	// "4" has no date, "5" has an unparseable hour.
	assert.Equal(t, []string{"1", "2", "3", "6"}, ids(result))
}

func TestApply_Predicates(t *testing.T) {
	tests := []struct {
		name     string
		criteria FilterCriteria
		expected []string
	}{
		{"neighborhood", FilterCriteria{Neighborhood: testBarrioPrado}, []string{"1", "2"}},
		{"all neighborhoods", FilterCriteria{Neighborhood: AllOption}, []string{"1", "2", "3", "6"}},
		{"all keyword", FilterCriteria{Neighborhood: "ALL", Sex: "all"}, []string{"1", "2", "3", "6"}},
		{"single category", FilterCriteria{Categories: []string{testCatHomicidio}}, []string{"2", "6"}},
		{"category set", FilterCriteria{Categories: []string{testCatHomicidio, testCatHurto}}, []string{"1", "2", "3", "6"}},
		{"category all", FilterCriteria{Categories: []string{AllOption}}, []string{"1", "2", "3", "6"}},
		{"sex", FilterCriteria{Sex: SexFemale}, []string{"2", "3"}},
		{"date range inclusive", FilterCriteria{Dates: DateRange{From: day(2024, 1, 12), To: day(2024, 2, 1)}}, []string{"2", "3"}},
		{"open start", FilterCriteria{Dates: DateRange{To: day(2024, 1, 5)}}, []string{"1"}},
		{"hour range", FilterCriteria{Hours: &HourRange{Min: 0, Max: 8}}, []string{"3", "6"}},
		{"single flag", FilterCriteria{RequiredFlags: []SocialFlag{FlagLGBTI}}, []string{"1", "3", "6"}},
		{"flags are ANDed", FilterCriteria{RequiredFlags: []SocialFlag{FlagLGBTI, FlagStreetDweller}}, []string{"3", "6"}},
		{"unsatisfiable flag", FilterCriteria{RequiredFlags: []SocialFlag{FlagSexWork}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Apply(testDataset(), tt.criteria)
			assert.Equal(t, tt.expected, ids(result))
		})
	}
}

func TestApply_HourRangeLateNight(t *testing.T) {
	ds := Dataset{
		Incidents: []Incident{
			newIncident("late", testBarrioPrado, testCatHurto, SexMale, "2024-01-01", "23:45"),
			newIncident("afternoon", testBarrioPrado, testCatHurto, SexMale, "2024-01-01", "14:00"),
		},
		HasTimeOfDay: true,
	}

	result := Apply(ds, FilterCriteria{Hours: &HourRange{Min: 22, Max: 23}})

	assert.Equal(t, []string{"late"}, ids(result))
}

func TestApply_HourBoundaries(t *testing.T) {
	ds := Dataset{
		Incidents: []Incident{
			newIncident("midnight", "", "", "", "2024-01-01", "00:00"),
			newIncident("last", "", "", "", "2024-01-01", "23:59"),
		},
		HasTimeOfDay: true,
	}

	assert.Equal(t, []string{"midnight", "last"}, ids(Apply(ds, FilterCriteria{Hours: &HourRange{Min: 0, Max: 23}})))
	assert.Equal(t, []string{"midnight"}, ids(Apply(ds, FilterCriteria{Hours: &HourRange{Min: 0, Max: 0}})))
	assert.Equal(t, []string{"last"}, ids(Apply(ds, FilterCriteria{Hours: &HourRange{Min: 23, Max: 23}})))
}

func TestApply_NoHourColumnSkipsHourFilter(t *testing.T) {
	ds := testDataset()
	ds.HasTimeOfDay = false

	result := Apply(ds, FilterCriteria{Hours: &HourRange{Min: 22, Max: 23}})

	assert.Equal(t, []string{"1", "2", "3", "5", "6"}, ids(result))
}

func TestApply_MissingFlagColumnSkipsFlag(t *testing.T) {
	ds := testDataset()
	ds.Columns = map[SocialFlag]bool{FlagLGBTI: true}

	result := Apply(ds, FilterCriteria{RequiredFlags: []SocialFlag{FlagSexWork}})

	assert.Equal(t, []string{"1", "2", "3", "6"}, ids(result))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	ds := testDataset()
	before := ids(ds.Incidents)

	_ = Apply(ds, FilterCriteria{Neighborhood: testBarrioCentro, Sex: SexMale})

	assert.Equal(t, before, ids(ds.Incidents))
}

func TestApply_EmptyResultIsValid(t *testing.T) {
	result := Apply(testDataset(), FilterCriteria{Neighborhood: "Nowhere"})

	require.NotNil(t, result)
	assert.Empty(t, result)
}

func TestApply_Idempotent(t *testing.T) {
	ds := testDataset()
	c := FilterCriteria{
		Categories:    []string{testCatHurto},
		Dates:         DateRange{From: day(2024, 1, 1), To: day(2024, 12, 31)},
		Hours:         &HourRange{Min: 6, Max: 23},
		RequiredFlags: []SocialFlag{FlagLGBTI},
	}

	first := Apply(ds, c)
	second := Apply(ds, c)
	again := Apply(Dataset{Incidents: first, HasTimeOfDay: ds.HasTimeOfDay, Columns: ds.Columns}, c)

	if diff := cmp.Diff(ids(first), ids(second)); diff != "" {
		t.Errorf("repeated apply mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(ids(first), ids(again)); diff != "" {
		t.Errorf("apply on own output mismatch (-first +again):\n%s", diff)
	}
}

func TestFilter_PredicateOrderDoesNotMatter(t *testing.T) {
	ds := testDataset()
	c := FilterCriteria{
		Neighborhood:  testBarrioCentro,
		Categories:    []string{testCatHurto, testCatHomicidio},
		Sex:           SexMale,
		Dates:         DateRange{From: day(2024, 1, 1), To: day(2024, 12, 31)},
		Hours:         &HourRange{Min: 0, Max: 23},
		RequiredFlags: []SocialFlag{FlagStreetDweller, FlagLGBTI},
	}
	preds := Predicates(ds, c)
	require.Len(t, preds, 7)

	want := ids(Apply(ds, c))
	require.Equal(t, []string{"6"}, want)

	for _, order := range permutations(len(preds)) {
		// Apply predicates one at a time, feeding each stage the previous output.
		current := ds.Incidents
		for _, idx := range order {
			current = Filter(current, []Predicate{preds[idx]})
		}
		assert.Equal(t, want, ids(current), "order %v", order)
	}
}

func TestFilterCriteria_Validate(t *testing.T) {
	tests := []struct {
		name    string
		c       FilterCriteria
		wantErr bool
	}{
		{"zero value", FilterCriteria{}, false},
		{"full day", FilterCriteria{Hours: &HourRange{Min: 0, Max: 23}}, false},
		{"inverted hours", FilterCriteria{Hours: &HourRange{Min: 10, Max: 2}}, true},
		{"hour above 23", FilterCriteria{Hours: &HourRange{Min: 0, Max: 24}}, true},
		{"negative hour", FilterCriteria{Hours: &HourRange{Min: -1, Max: 3}}, true},
		{"inverted dates", FilterCriteria{Dates: DateRange{From: day(2024, 2, 1), To: day(2024, 1, 1)}}, true},
		{"same day", FilterCriteria{Dates: DateRange{From: day(2024, 2, 1), To: day(2024, 2, 1)}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCriteria)
				return
			}
			require.NoError(t, err)
		})
	}
}

// permutations returns every ordering of 0..n-1 (Heap's algorithm).
func permutations(n int) [][]int {
	a := make([]int, n)
	for i := range a {
		a[i] = i
	}
	var out [][]int
	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			out = append(out, append([]int(nil), a...))
			return
		}
		generate(k - 1)
		for i := 0; i < k-1; i++ {
			if k%2 == 0 {
				a[i], a[k-1] = a[k-1], a[i]
			} else {
				a[0], a[k-1] = a[k-1], a[0]
			}
			generate(k - 1)
		}
	}
	generate(n)
	return out
}
