package chain

import "strings"

// AllowList is the set of Configs an operation may run under.
type AllowList []Config

// Allow builds an AllowList from configs.
func Allow(configs ...Config) AllowList {
	return AllowList(configs)
}

// AllNetworks allows every network of the given chains.
func AllNetworks(chains ...Chain) AllowList {
	var out AllowList
	for _, c := range chains {
		for _, n := range networks[c] {
			out = append(out, Config{Chain: c, Network: n})
		}
	}
	return out
}

// EVM allows every network of every EVM chain.
func EVM() AllowList {
	return AllNetworks(Ethereum, Polygon, BNB)
}

// Contains reports whether cfg is in the list by exact value equality.
func (l AllowList) Contains(cfg Config) bool {
	for _, c := range l {
		if c == cfg {
			return true
		}
	}
	return false
}

// Union returns the configs of l followed by those of other not already in l.
func (l AllowList) Union(other AllowList) AllowList {
	out := make(AllowList, 0, len(l)+len(other))
	out = append(out, l...)
	for _, c := range other {
		if !out.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

func (l AllowList) String() string {
	parts := make([]string, len(l))
	for i, c := range l {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}
