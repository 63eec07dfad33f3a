// SPDX-License-Identifier: GPL-3.0-or-later

package modules

import (
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/jolokia"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/load"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/log_file"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/match_regex"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/match_value"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/memory"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/notify_log"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/ping"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/snmp"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/target_notification"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/target_replace"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/target_set"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/write_influxdb_udp"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/write_mongodb"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/write_netdata"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/write_prometheus"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules/write_redis"
)
