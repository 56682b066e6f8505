package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/kevmo314/go-openmv"
	usb "github.com/kevmo314/go-usb"
)

func main() {
	all := flag.Bool("all", false, "list every USB device, not just cameras")
	flag.Parse()

	devices, err := usb.DeviceList()
	if err != nil {
		log.Fatalf("Failed to list devices: %v", err)
	}

	found := 0
	for _, dev := range devices {
		isCamera := dev.Descriptor.VendorID == openmv.VendorID && dev.Descriptor.ProductID == openmv.ProductID
		if !isCamera && !*all {
			continue
		}
		found++

		fmt.Printf("Device %d:\n", found)
		fmt.Printf("  Path: %s\n", dev.Path)
		fmt.Printf("  VID:PID: %04x:%04x\n", dev.Descriptor.VendorID, dev.Descriptor.ProductID)
		fmt.Printf("  USB Version: %d.%02d\n", dev.Descriptor.USBVersion>>8, dev.Descriptor.USBVersion&0xFF)

		if dev.SysfsStrings != nil {
			if dev.SysfsStrings.Manufacturer != "" {
				fmt.Printf("  Manufacturer: %s\n", dev.SysfsStrings.Manufacturer)
			}
			if dev.SysfsStrings.Product != "" {
				fmt.Printf("  Product: %s\n", dev.SysfsStrings.Product)
			}
			if dev.SysfsStrings.Serial != "" {
				fmt.Printf("  Serial: %s\n", dev.SysfsStrings.Serial)
			}
		}

		if !isCamera {
			fmt.Println()
			continue
		}
		fmt.Printf("  ** OpenMV debug interface **\n")

		handle, err := dev.Open()
		if err != nil {
			fmt.Printf("  (Could not open: %v)\n\n", err)
			continue
		}
		config, err := handle.GetActiveConfigDescriptor()
		if err == nil {
			for _, iface := range config.Interfaces {
				for _, alt := range iface.AltSettings {
					if alt.InterfaceNumber != openmv.Interface {
						continue
					}
					fmt.Printf("    Interface %d alt %d: class %d, %d endpoints\n",
						alt.InterfaceNumber, alt.AlternateSetting, alt.InterfaceClass, alt.NumEndpoints)
				}
			}
		}
		handle.Close()
		fmt.Println()
	}

	if found == 0 {
		fmt.Printf("No cameras found (looking for %04x:%04x)\n", openmv.VendorID, openmv.ProductID)
	}
}
