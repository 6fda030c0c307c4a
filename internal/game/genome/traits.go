package genome

import "sort"

// WeaponProfile is the combat profile of a weapon trait.
type WeaponProfile struct {
	Name string
	// Damage is the base damage per hit before scaling.
	Damage float64
	// Reach is the 3D attack radius.
	Reach float64
	// CooldownSeconds is the delay between attacks.
	CooldownSeconds float64
	// CostBase and CostFury give the stamina cost CostBase + CostFury*fury/100.
	// Every weapon keeps the cost inside [8, 18].
	CostBase float64
	CostFury float64
}

// DefenseProfile is the combat profile of a defense trait.
type DefenseProfile struct {
	Name string
	// Reduction is the fraction of incoming damage absorbed.
	Reduction float64
	// DodgeBonus is added to the instinct-derived dodge term.
	DodgeBonus float64
}

var weapons = map[string]WeaponProfile{
	"claws":  {Name: "claws", Damage: 9, Reach: 42, CooldownSeconds: 0.8, CostBase: 8, CostFury: 4},
	"fangs":  {Name: "fangs", Damage: 11, Reach: 40, CooldownSeconds: 1.0, CostBase: 9, CostFury: 5},
	"horns":  {Name: "horns", Damage: 15, Reach: 44, CooldownSeconds: 1.4, CostBase: 11, CostFury: 7},
	"tail":   {Name: "tail", Damage: 12, Reach: 50, CooldownSeconds: 1.2, CostBase: 10, CostFury: 6},
	"spikes": {Name: "spikes", Damage: 10, Reach: 41, CooldownSeconds: 0.9, CostBase: 8, CostFury: 6},
}

var defenses = map[string]DefenseProfile{
	"none":   {Name: "none"},
	"hide":   {Name: "hide", Reduction: 0.10},
	"shell":  {Name: "shell", Reduction: 0.22},
	"scales": {Name: "scales", Reduction: 0.06, DodgeBonus: 0.05},
	"fur":    {Name: "fur", DodgeBonus: 0.08},
}

// WeaponNames returns the known weapon traits in sorted order.
func WeaponNames() []string { return sortedKeys(weapons) }

// DefenseNames returns the known defense traits in sorted order.
func DefenseNames() []string { return sortedKeys(defenses) }

// Mobilities returns the three mobility classes.
func Mobilities() []Mobility {
	return []Mobility{MobilityGround, MobilityFlyer, MobilityWallcrawler}
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
