package protocol

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Response builders for the WeMo Insight device emulated on every port.
// Values below are what a real Insight reports; controllers only check
// that they are present and well formed.

const (
	// CRLF terminates every header line and follows each SCPD document
	CRLF = "\r\n"

	// Service types addressed in SOAPACTION headers
	ServiceBasicEvent = "basicevent"
	ServiceInsight    = "insight"
	ServiceTimeSync   = "timesync"

	// SetBinaryState return values. The first field is the state
	// (0 off, 8 on), the rest are fixed Insight power readings.
	BinaryStateOffValue = "0|1611532923|231|300|183183|1209600|8|1170|1164707|99830512"
	BinaryStateOnValue  = "8|1611530424|231|300|183183|1209600|8|1190|1164707|99830512"

	// Bounds of the random "today on time" field in InsightParams
	InsightOnTimeMin = 1000
	InsightOnTimeMax = 300000
)

// Serial derives a device serial from its name: the UUIDv3 of the name in
// the X.500 namespace. The same name always produces the same serial, so
// controllers keep recognizing a device across restarts.
func Serial(name string) string {
	return uuid.NewMD5(uuid.NameSpaceX500, []byte(name)).String()
}

// UDN returns the unique device name advertised for serial.
func UDN(serial string) string {
	return "uuid:Insight-1_0-" + serial
}

const setupTemplate = `<?xml version="1.0"?>
<root xmlns="urn:Belkin:device-1-0">
	<specVersion><major>1</major><minor>0</minor></specVersion>
	<device>
		<deviceType>urn:Belkin:device:insight:1</deviceType>
		<friendlyName>%s</friendlyName>
		<manufacturer>Belkin International Inc.</manufacturer>
		<modelName>Insight</modelName>
		<modelNumber>1.0</modelNumber>
		<serialNumber>%s</serialNumber>
		<UDN>%s</UDN>
		<UPC>123456789</UPC>
		<macAddress>001122334455</macAddress>
		<firmwareVersion>WeMo_WW_2.00.11532.PVT-OWRT-InsightV2</firmwareVersion>
		<iconVersion>3|49153</iconVersion>
		<binaryState>0</binaryState>
		<binaryOption>1</binaryOption>
		<serviceList>
			<service>
				<serviceType>urn:Belkin:service:basicevent:1</serviceType>
				<serviceId>urn:Belkin:serviceId:basicevent1</serviceId>
				<controlURL>/upnp/control/basicevent1</controlURL>
				<eventSubURL>/upnp/event/basicevent1</eventSubURL>
				<SCPDURL>/eventservice.xml</SCPDURL>
			</service>
			<service>
				<serviceType>urn:Belkin:service:metainfo:1</serviceType>
				<serviceId>urn:Belkin:serviceId:metainfo1</serviceId>
				<controlURL>/upnp/control/metainfo1</controlURL>
				<eventSubURL>/upnp/event/metainfo1</eventSubURL>
				<SCPDURL>/metainfoservice.xml</SCPDURL>
			</service>
			<service>
				<serviceType>urn:Belkin:service:insight:1</serviceType>
				<serviceId>urn:Belkin:serviceId:insight1</serviceId>
				<controlURL>/upnp/control/insight1</controlURL>
				<eventSubURL>/upnp/event/insight1</eventSubURL>
				<SCPDURL>/insightservice.xml</SCPDURL>
			</service>
		</serviceList>
	</device>
</root>`

var setupFormat = compact(setupTemplate)

// SetupXML builds the device description served at /setup.xml.
func SetupXML(name, serial string) string {
	return fmt.Sprintf(setupFormat, escape(name), serial, UDN(serial))
}

const soapEnvelope = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/"><s:Body>%s</s:Body></s:Envelope>`

// ActionResponse builds the SOAP reply to a basicevent or insight action.
//
//	ActionResponse("Get", "BinaryState", "basicevent", "1")
//
// produces a GetBinaryStateResponse element holding <BinaryState>1</BinaryState>
// followed by the countdown and device time every WeMo reply carries.
func ActionResponse(action, actionType, serviceType, value string) string {
	element := action + actionType + "Response"
	inner := fmt.Sprintf(
		`<u:%s xmlns:u="urn:Belkin:service:%s:1"><%s>%s</%s><CountdownEndTime>0</CountdownEndTime><deviceCurrentTime>1611532922</deviceCurrentTime></u:%s>`,
		element, serviceType, actionType, escape(value), actionType, element,
	)
	return fmt.Sprintf(soapEnvelope, inner)
}

// TimeSyncResponse builds the reply to a timesync1 request carrying now as
// Unix seconds.
func TimeSyncResponse(now time.Time) string {
	inner := fmt.Sprintf(
		`<u:TimeSyncResponse xmlns:u="urn:Belkin:service:timesync:1"><UTC>%d</UTC></u:TimeSyncResponse>`,
		now.Unix(),
	)
	return fmt.Sprintf(soapEnvelope, inner)
}

// InsightParams returns the GetInsightParams value with onTime as the
// "today on time" field.
func InsightParams(onTime int) string {
	return fmt.Sprintf("8|1549126755|0|0|0|9319|10|%d|0|0.000000|7000", onTime)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
