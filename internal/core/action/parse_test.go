package action

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFitness(t *testing.T) {
	cases := []struct {
		input string
		want  Fitness
	}{
		{`has_inventory`, HasInventory()},
		{`has_item "white key"`, HasItem("white key")},
		{`has_item ""`, HasItem("")},
		{`any [has_item "key", has_inventory]`, Any(HasItem("key"), HasInventory())},
		{`all [has_item "torch", has_item "key"]`, All(HasItem("torch"), HasItem("key"))},
		{`any []`, Any()},
		{`all []`, All()},
		{
			`all [has_inventory, any [has_item "red key", has_item "white key"]]`,
			All(HasInventory(), Any(HasItem("red key"), HasItem("white key"))),
		},
		{`  has_inventory  `, HasInventory()},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseFitness(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseFitnessErrors(t *testing.T) {
	for _, input := range []string{
		``,
		`has_item`,
		`has_item white key`,
		`has_item "unterminated`,
		`has_inventories`,
		`any`,
		`any [has_inventory`,
		`any [has_inventory,]`,
		`all [has_inventory] trailing`,
		`maybe [has_inventory]`,
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseFitness(input)
			require.Error(t, err)
		})
	}
}

func TestParseFitnessRoundTrip(t *testing.T) {
	rule := All(HasInventory(), Any(HasItem("white key"), HasItem("torch")))
	back, err := ParseFitness(rule.String())
	require.NoError(t, err)
	require.Equal(t, rule, back)
}

func TestParseLifespan(t *testing.T) {
	l, err := ParseLifespan("forever")
	require.NoError(t, err)
	require.False(t, l.Dead())
	_, bounded := l.Remaining()
	require.False(t, bounded)

	l, err = ParseLifespan(" 3 ")
	require.NoError(t, err)
	n, bounded := l.Remaining()
	require.True(t, bounded)
	require.Equal(t, 3, n)

	for _, input := range []string{"", "-1", "ever", "3.5"} {
		_, err := ParseLifespan(input)
		require.Error(t, err, "input %q", input)
	}
}
