package rules

import "github.com/ludo-technologies/solscan/domain"

// definitions is the built-in catalog in scan order
var definitions = []Definition{
	{
		ID:             "reentrancy",
		Name:           "Reentrancy Vulnerability",
		Description:    "External call made before state changes, allowing reentrancy attacks",
		Severity:       domain.SeverityCritical,
		Category:       "REENTRANCY",
		Pattern:        `\.call\{.*value.*\}|\.call\.value\(|\.send\(|\.transfer\(`,
		CheckBefore:    `(balances?\[|balance\s*[<>=]|require\s*\()`,
		Recommendation: "Use the checks-effects-interactions pattern. Update state variables before making external calls, or use ReentrancyGuard.",
		CWEID:          "CWE-841",
		SWCID:          "SWC-107",
	},
	{
		ID:             "integer_overflow",
		Name:           "Integer Overflow/Underflow",
		Description:    "Arithmetic operation without overflow protection",
		Severity:       domain.SeverityHigh,
		Category:       "ARITHMETIC",
		Pattern:        `\+\+|--|\+=|-=|\*=|/=|\+|-|\*|/`,
		Exclude:        `pragma\s+solidity\s*[\^>=]*\s*0\.[8-9]|SafeMath|unchecked`,
		Guard:          `SafeMath`,
		GuardScope:     GuardRestOfLine,
		Recommendation: "Use Solidity 0.8+ with built-in overflow checks, or use SafeMath library for older versions.",
		CWEID:          "CWE-190",
		SWCID:          "SWC-101",
	},
	{
		ID:             "unchecked_call",
		Name:           "Unchecked External Call",
		Description:    "Return value of external call not checked",
		Severity:       domain.SeverityHigh,
		Category:       "UNCHECKED_CALL",
		Pattern:        `\.call\(|\.delegatecall\(|\.staticcall\(`,
		CheckAfter:     `require\s*\(|if\s*\(.*success|assert\s*\(`,
		Recommendation: "Always check return values of low-level calls: (bool success, ) = addr.call(...); require(success);",
		CWEID:          "CWE-252",
		SWCID:          "SWC-104",
	},
	{
		ID:             "tx_origin",
		Name:           "tx.origin Authentication",
		Description:    "Using tx.origin for authentication is vulnerable to phishing attacks",
		Severity:       domain.SeverityHigh,
		Category:       "ACCESS_CONTROL",
		Pattern:        `tx\.origin`,
		Context:        `require\s*\(.*tx\.origin|if\s*\(.*tx\.origin|==\s*tx\.origin|tx\.origin\s*==`,
		Recommendation: "Use msg.sender instead of tx.origin for authentication.",
		CWEID:          "CWE-287",
		SWCID:          "SWC-115",
	},
	{
		ID:             "selfdestruct",
		Name:           "Unprotected Selfdestruct",
		Description:    "selfdestruct can be called without proper access control",
		Severity:       domain.SeverityCritical,
		Category:       "ACCESS_CONTROL",
		Pattern:        `selfdestruct\s*\(|suicide\s*\(`,
		CheckBefore:    `onlyOwner|require\s*\(.*owner|modifier.*owner`,
		Recommendation: "Add proper access control (e.g., onlyOwner modifier) to selfdestruct functions.",
		CWEID:          "CWE-284",
		SWCID:          "SWC-106",
	},
	{
		ID:             "delegatecall",
		Name:           "Delegatecall Usage",
		Description:    "delegatecall executes code in the context of the calling contract",
		Severity:       domain.SeverityHigh,
		Category:       "DELEGATECALL",
		Pattern:        `\.delegatecall\(`,
		Recommendation: "Ensure delegatecall target is trusted. Never use user-supplied addresses with delegatecall.",
		CWEID:          "CWE-829",
		SWCID:          "SWC-112",
	},
	{
		ID:             "timestamp",
		Name:           "Timestamp Dependence",
		Description:    "Block timestamp can be manipulated by miners within ~15 seconds",
		Severity:       domain.SeverityMedium,
		Category:       "TIME_MANIPULATION",
		Pattern:        `block\.timestamp|now`,
		Context:        `require\s*\(.*block\.timestamp|if\s*\(.*block\.timestamp|==\s*block\.timestamp`,
		Recommendation: "Don't use block.timestamp for critical logic. For randomness, use Chainlink VRF or commit-reveal schemes.",
		CWEID:          "CWE-829",
		SWCID:          "SWC-116",
	},
	{
		ID:             "blockhash",
		Name:           "Blockhash Usage for Randomness",
		Description:    "Using blockhash for randomness is predictable and manipulable",
		Severity:       domain.SeverityMedium,
		Category:       "RANDOMNESS",
		Pattern:        `blockhash\s*\(|block\.blockhash`,
		Recommendation: "Use Chainlink VRF or other secure randomness sources.",
		CWEID:          "CWE-330",
		SWCID:          "SWC-120",
	},
	{
		ID:             "floating_pragma",
		Name:           "Floating Pragma",
		Description:    "Contract uses floating pragma which may compile with different versions",
		Severity:       domain.SeverityLow,
		Category:       "VERSION",
		Pattern:        `pragma\s+solidity\s*\^`,
		Recommendation: "Lock pragma to specific version: pragma solidity 0.8.19;",
		CWEID:          "CWE-1103",
		SWCID:          "SWC-103",
	},
	{
		ID:             "outdated_compiler",
		Name:           "Outdated Compiler Version",
		Description:    "Using outdated Solidity version with known vulnerabilities",
		Severity:       domain.SeverityMedium,
		Category:       "VERSION",
		Pattern:        `pragma\s+solidity\s*[\^>=]*\s*0\.[0-6]\.`,
		Recommendation: "Upgrade to Solidity 0.8.x for built-in overflow protection and security improvements.",
		CWEID:          "CWE-1103",
		SWCID:          "SWC-102",
	},
	{
		ID:             "default_visibility",
		Name:           "Default Visibility",
		Description:    "Function visibility not explicitly specified",
		Severity:       domain.SeverityMedium,
		Category:       "VISIBILITY",
		Pattern:        `function\s+\w+\s*\([^)]*\)`,
		Guard:          `public|private|internal|external`,
		GuardScope:     GuardRestOfLine,
		Recommendation: "Always explicitly declare function visibility (public, private, internal, external).",
		CWEID:          "CWE-710",
		SWCID:          "SWC-100",
	},
	{
		ID:             "uninitialized_storage",
		Name:           "Uninitialized Storage Pointer",
		Description:    "Storage pointer declared without initialization",
		Severity:       domain.SeverityHigh,
		Category:       "STORAGE",
		Pattern:        `struct\s+\w+.*storage\s+\w+\s*;`,
		Recommendation: "Initialize storage pointers explicitly or use memory keyword.",
		CWEID:          "CWE-824",
		SWCID:          "SWC-109",
	},
	{
		ID:             "dos_gas_limit",
		Name:           "Denial of Service - Gas Limit",
		Description:    "Unbounded loop may exceed block gas limit",
		Severity:       domain.SeverityMedium,
		Category:       "DOS",
		Pattern:        `for\s*\([^)]*\.length|while\s*\(`,
		Recommendation: "Implement pagination or limit loop iterations. Use pull over push pattern.",
		CWEID:          "CWE-400",
		SWCID:          "SWC-128",
	},
	{
		ID:             "zero_address",
		Name:           "Missing Zero Address Check",
		Description:    "Address parameter not validated for zero address",
		Severity:       domain.SeverityLow,
		Category:       "INPUT_VALIDATION",
		Pattern:        `function\s+\w+\s*\([^)]*address\s+\w+[^)]*\)`,
		Guard:          `require\s*\([^)]*!=\s*address\s*\(\s*0\s*\)`,
		GuardScope:     GuardStartsOnLine,
		Recommendation: "Add require(addr != address(0)) check for address parameters.",
		CWEID:          "CWE-20",
		SWCID:          "SWC-",
	},
	{
		ID:             "front_running",
		Name:           "Potential Front-Running",
		Description:    "Transaction may be vulnerable to front-running attacks",
		Severity:       domain.SeverityMedium,
		Category:       "FRONT_RUNNING",
		Pattern:        `(approve\s*\(|swap|exchange|trade|buy|sell)`,
		Recommendation: "Implement commit-reveal scheme or use flashbots for sensitive transactions.",
		CWEID:          "CWE-362",
		SWCID:          "SWC-114",
	},
	{
		ID:             "signature_malleability",
		Name:           "Signature Malleability",
		Description:    "ecrecover is vulnerable to signature malleability",
		Severity:       domain.SeverityMedium,
		Category:       "CRYPTOGRAPHY",
		Pattern:        `ecrecover\s*\(`,
		Recommendation: "Use OpenZeppelin's ECDSA library which handles signature malleability.",
		CWEID:          "CWE-347",
		SWCID:          "SWC-117",
	},
	{
		ID:             "hardcoded_address",
		Name:           "Hardcoded Address",
		Description:    "Contract contains hardcoded address",
		Severity:       domain.SeverityInfo,
		Category:       "CODE_QUALITY",
		Pattern:        `0x[a-fA-F0-9]{40}`,
		Exclude:        `address\s*\(\s*0\s*\)|0x0{40}`,
		Recommendation: "Consider using constructor parameters or configurable addresses for flexibility.",
		CWEID:          "CWE-798",
	},
	{
		ID:             "missing_events",
		Name:           "Missing Event Emission",
		Description:    "State-changing function does not emit events",
		Severity:       domain.SeverityLow,
		Category:       "CODE_QUALITY",
		Pattern:        `function\s+\w+\s*\([^)]*\)[^{]*\{[^}]*(?:balances?\[|\.transfer\(|\.send\(|owner\s*=)[^}]*\}`,
		Guard:          `emit\s`,
		GuardScope:     GuardBodyOrTrailer,
		Recommendation: "Emit events for all state changes to enable off-chain monitoring.",
	},
	{
		ID:             "assembly_usage",
		Name:           "Assembly Usage",
		Description:    "Contract uses inline assembly which bypasses safety checks",
		Severity:       domain.SeverityInfo,
		Category:       "CODE_QUALITY",
		Pattern:        `assembly\s*\{`,
		Recommendation: "Ensure assembly code is thoroughly audited. Document why assembly is necessary.",
	},
}

var (
	catalog []Rule
	byID    map[string]int
)

func init() {
	compiled, err := Compile(definitions)
	if err != nil {
		panic("rules: invalid built-in catalog: " + err.Error())
	}
	catalog = compiled
	byID = make(map[string]int, len(compiled))
	for i, r := range compiled {
		byID[r.ID] = i
	}
}

// All returns the catalog in scan order. The returned slice is a copy;
// the compiled patterns are shared and safe for concurrent use.
func All() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the rule with the given id
func Lookup(id string) (Rule, bool) {
	i, ok := byID[id]
	if !ok {
		return Rule{}, false
	}
	return catalog[i], true
}

// Select returns the catalog without the disabled rule ids.
// Unknown ids are reported so configuration typos surface early.
func Select(disabled []string) ([]Rule, []string) {
	if len(disabled) == 0 {
		return All(), nil
	}

	skip := make(map[string]bool, len(disabled))
	var unknown []string
	for _, id := range disabled {
		if _, ok := byID[id]; !ok {
			unknown = append(unknown, id)
			continue
		}
		skip[id] = true
	}

	selected := make([]Rule, 0, len(catalog))
	for _, r := range catalog {
		if !skip[r.ID] {
			selected = append(selected, r)
		}
	}
	return selected, unknown
}
