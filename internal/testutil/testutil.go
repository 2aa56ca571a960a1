// Package testutil provides helper functions for testing solscan components
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ludo-technologies/solscan/domain"
)

// VulnerableBank is a contract that triggers several rules at once
const VulnerableBank = `pragma solidity ^0.6.0;

contract VulnerableBank {
    mapping(address => uint) public balances;
    address owner;

    function withdraw(uint amount) public {
        require(balances[msg.sender] >= amount);
        msg.sender.call{value: amount}("");
        balances[msg.sender] -= amount;
    }

    function auth() public {
        require(tx.origin == owner);
    }

    function kill() public {
        selfdestruct(payable(owner));
    }
}
`

// CleanContract triggers no rule
const CleanContract = `contract Clean {
    uint256 value;
}
`

// AssertNoError fails the test if err is not nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("Expected error but got nil")
	}
}

// AssertEqual fails the test if expected != actual
func AssertEqual(t *testing.T, expected, actual any) {
	t.Helper()
	if expected != actual {
		t.Errorf("Expected %v, got %v", expected, actual)
	}
}

// AssertTrue fails the test if condition is false
func AssertTrue(t *testing.T, condition bool, msg string) {
	t.Helper()
	if !condition {
		t.Error(msg)
	}
}

// AssertFalse fails the test if condition is true
func AssertFalse(t *testing.T, condition bool, msg string) {
	t.Helper()
	if condition {
		t.Error(msg)
	}
}

// AssertNotNil fails the test if value is nil
func AssertNotNil(t *testing.T, value any) {
	t.Helper()
	if value == nil {
		t.Error("Expected non-nil value")
	}
}

// AssertNil fails the test if value is not nil
func AssertNil(t *testing.T, value any) {
	t.Helper()
	if value != nil {
		t.Errorf("Expected nil, got %v", value)
	}
}

// FindingsFor returns the findings produced by a given rule
func FindingsFor(findings []domain.Finding, ruleID string) []domain.Finding {
	var out []domain.Finding
	for _, f := range findings {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}
	return out
}

// HasRule reports whether any finding was produced by ruleID
func HasRule(findings []domain.Finding, ruleID string) bool {
	return len(FindingsFor(findings, ruleID)) > 0
}

// WriteContract writes a contract file under dir and returns its path
func WriteContract(t *testing.T, dir, name, code string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		t.Fatalf("Failed to write contract: %v", err)
	}
	return path
}
