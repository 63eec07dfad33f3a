// SPDX-License-Identifier: GPL-3.0-or-later

package snmp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

func (s *SNMP) newHostData(hc HostConfig, data map[string]*DataConfig) (*hostData, error) {
	client, err := s.initSNMPClient(hc)
	if err != nil {
		return nil, err
	}

	hd := &hostData{
		name:    hc.Name,
		client:  client,
		maxOIDs: hc.MaxOIDs,
		log:     s.Logger,
	}
	if hd.maxOIDs <= 0 {
		hd.maxOIDs = defaultMaxOIDs
	}
	for _, c := range hc.Collect {
		hd.data = append(hd.data, data[c])
	}
	return hd, nil
}

func (s *SNMP) initSNMPClient(hc HostConfig) (gosnmp.Handler, error) {
	client := s.newSnmpClient()

	port, retries, community := hc.Port, hc.Retries, hc.Community
	if port == 0 {
		port = defaultPort
	}
	if retries == 0 {
		retries = defaultRetries
	}
	if community == "" {
		community = defaultCommunity
	}

	client.SetTarget(hc.Address)
	client.SetPort(uint16(port))
	client.SetRetries(retries)
	if t := hc.Timeout.Duration(); t > 0 {
		client.SetTimeout(t)
	} else {
		client.SetTimeout(5 * time.Second)
	}
	client.SetMaxOids(defaultMaxOIDs)

	switch ver := parseSNMPVersion(hc.Version); ver {
	case gosnmp.Version1, gosnmp.Version2c:
		client.SetCommunity(community)
		client.SetVersion(ver)
	case gosnmp.Version3:
		if hc.User.Name == "" {
			return nil, errors.New("username is required for SNMPv3")
		}
		client.SetVersion(gosnmp.Version3)
		client.SetSecurityModel(gosnmp.UserSecurityModel)
		client.SetMsgFlags(parseSNMPv3SecurityLevel(hc.User.SecurityLevel))
		client.SetSecurityParameters(&gosnmp.UsmSecurityParameters{
			UserName:                 hc.User.Name,
			AuthenticationProtocol:   parseSNMPv3AuthProtocol(hc.User.AuthProto),
			AuthenticationPassphrase: hc.User.AuthKey,
			PrivacyProtocol:          parseSNMPv3PrivProtocol(hc.User.PrivProto),
			PrivacyPassphrase:        hc.User.PrivKey,
		})
	default:
		return nil, fmt.Errorf("invalid SNMP version: %s", hc.Version)
	}

	s.Info(snmpClientConnInfo(client))

	return client, nil
}

func snmpClientConnInfo(c gosnmp.Handler) string {
	var info strings.Builder
	info.WriteString(fmt.Sprintf("hostname=%s,port=%d,snmp_version=%s", c.Target(), c.Port(), c.Version()))
	switch c.Version() {
	case gosnmp.Version1, gosnmp.Version2c:
		info.WriteString(fmt.Sprintf(",community=%s", c.Community()))
	case gosnmp.Version3:
		info.WriteString(fmt.Sprintf(",security_level=%d", c.MsgFlags()))
	}
	return info.String()
}

func parseSNMPVersion(version string) gosnmp.SnmpVersion {
	switch version {
	case "0", "1":
		return gosnmp.Version1
	case "2", "2c", "":
		return gosnmp.Version2c
	case "3":
		return gosnmp.Version3
	default:
		return 0xff
	}
}

func parseSNMPv3SecurityLevel(level string) gosnmp.SnmpV3MsgFlags {
	switch level {
	case "2", "authNoPriv":
		return gosnmp.AuthNoPriv
	case "3", "authPriv":
		return gosnmp.AuthPriv
	default:
		return gosnmp.NoAuthNoPriv
	}
}

func parseSNMPv3AuthProtocol(protocol string) gosnmp.SnmpV3AuthProtocol {
	switch protocol {
	case "2", "md5":
		return gosnmp.MD5
	case "3", "sha":
		return gosnmp.SHA
	case "4", "sha224":
		return gosnmp.SHA224
	case "5", "sha256":
		return gosnmp.SHA256
	case "6", "sha384":
		return gosnmp.SHA384
	case "7", "sha512":
		return gosnmp.SHA512
	default:
		return gosnmp.NoAuth
	}
}

func parseSNMPv3PrivProtocol(protocol string) gosnmp.SnmpV3PrivProtocol {
	switch protocol {
	case "2", "des":
		return gosnmp.DES
	case "3", "aes":
		return gosnmp.AES
	case "4", "aes192":
		return gosnmp.AES192
	case "5", "aes256":
		return gosnmp.AES256
	case "6", "aes192c":
		return gosnmp.AES192C
	case "7", "aes256c":
		return gosnmp.AES256C
	default:
		return gosnmp.NoPriv
	}
}
