// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"fmt"
	"net/netip"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/telekom/flowtrace/internal/traceroute"
)

// matchEnv is the environment match conditions are evaluated in.
//
// Example conditions:
//
//	protocol == "tcp" && dstPort in [80, 443]
//	inPrefix(srcIp, "10.0.0.0/8") && srcInterface != "mgmt0"
type matchEnv struct {
	SrcIP        string `expr:"srcIp"`
	DstIP        string `expr:"dstIp"`
	Protocol     string `expr:"protocol"`
	IPProtocol   int    `expr:"ipProtocol"`
	SrcPort      int    `expr:"srcPort"`
	DstPort      int    `expr:"dstPort"`
	IcmpType     int    `expr:"icmpType"`
	IcmpCode     int    `expr:"icmpCode"`
	SrcInterface string `expr:"srcInterface"`

	InPrefix func(ip, prefix string) bool `expr:"inPrefix"`
}

func newMatchEnv(f traceroute.Flow, srcIface string) matchEnv {
	return matchEnv{
		SrcIP:        f.SrcIP.String(),
		DstIP:        f.DstIP.String(),
		Protocol:     f.IPProtocol.String(),
		IPProtocol:   int(f.IPProtocol),
		SrcPort:      int(f.SrcPort),
		DstPort:      int(f.DstPort),
		IcmpType:     int(f.IcmpType),
		IcmpCode:     int(f.IcmpCode),
		SrcInterface: srcIface,
		InPrefix:     inPrefix,
	}
}

func inPrefix(ip, prefix string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		return false
	}
	return p.Contains(a)
}

// condition is a compiled match condition. The nil condition matches
// every flow.
type condition struct {
	program *vm.Program
}

func compileCondition(cond string) (*condition, error) {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return &condition{}, nil
	}
	program, err := expr.Compile(cond, expr.Env(matchEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid match condition %q: %w", cond, err)
	}
	return &condition{program: program}, nil
}

func (c *condition) matches(f traceroute.Flow, srcIface string) (bool, error) {
	if c.program == nil {
		return true, nil
	}
	out, err := expr.Run(c.program, newMatchEnv(f, srcIface))
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition must evaluate to bool (got %T)", out)
	}
	return b, nil
}
